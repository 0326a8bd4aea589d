package mockbackend

import (
	"sort"
	"sync"
	"time"

	"ojarena/internal/contest"
	"ojarena/pkg/errors"

	"golang.org/x/crypto/bcrypt"
)

// Fixture accounts only.
const passwordCost = bcrypt.MinCost

type user struct {
	ID           int64
	Username     string
	PasswordHash []byte
}

type contestRecord struct {
	contest.Contest
	participants map[int64]bool
}

type problemRecord struct {
	contest.Problem
	hidden []contest.TestCase
}

// SubmissionRecord is one judged submission kept for listing.
type SubmissionRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	ProblemID string    `json:"problemId"`
	ContestID string    `json:"contestId,omitempty"`
	Language  string    `json:"language"`
	Verdict   string    `json:"verdict"`
	Passed    int       `json:"passed"`
	Total     int       `json:"total"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the in-memory state of the mock backend.
type Store struct {
	mu          sync.RWMutex
	users       map[string]*user
	usersByID   map[int64]*user
	contests    map[string]*contestRecord
	problems    map[string]*problemRecord
	submissions []SubmissionRecord
	nextUserID  int64
	nextSubID   int64
}

// NewStore loads fixtures. Contest times are resolved against now.
func NewStore(cfg Config, now time.Time) *Store {
	s := &Store{
		users:     make(map[string]*user),
		usersByID: make(map[int64]*user),
		contests:  make(map[string]*contestRecord),
		problems:  make(map[string]*problemRecord),
	}
	for _, u := range cfg.Users {
		_, _ = s.Register(u.Username, u.Password)
	}
	for _, p := range cfg.Problems {
		s.problems[p.ID] = &problemRecord{Problem: p.Problem, hidden: p.HiddenTestCases}
	}
	for _, f := range cfg.Contests {
		rec := &contestRecord{
			Contest: contest.Contest{
				ID:          f.ID,
				Title:       f.Title,
				Description: f.Description,
				StartTime:   now.Add(f.StartsIn).UTC().Truncate(time.Second),
				EndTime:     now.Add(f.StartsIn + f.Duration).UTC().Truncate(time.Second),
			},
			participants: make(map[int64]bool),
		}
		for _, pid := range f.Problems {
			ref := contest.ProblemRef{ID: pid}
			if p, ok := s.problems[pid]; ok {
				ref.Title, ref.Difficulty = p.Title, p.Difficulty
			}
			rec.Problems = append(rec.Problems, ref)
		}
		for _, name := range f.Participants {
			if u, ok := s.users[name]; ok {
				rec.participants[u.ID] = true
			}
		}
		s.contests[f.ID] = rec
	}
	return s
}

// Register creates a user.
func (s *Store) Register(username, password string) (int64, error) {
	if username == "" || password == "" {
		return 0, errors.New(errors.RequiredFieldEmpty).WithMessage("username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return 0, errors.Wrapf(err, errors.InvalidParams, "hash password failed")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[username]; exists {
		return 0, errors.New(errors.UsernameExists)
	}
	s.nextUserID++
	u := &user{ID: s.nextUserID, Username: username, PasswordHash: hash}
	s.users[username] = u
	s.usersByID[u.ID] = u
	return u.ID, nil
}

// Login checks credentials.
func (s *Store) Login(username, password string) (int64, error) {
	s.mu.RLock()
	u, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return 0, errors.New(errors.InvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return 0, errors.New(errors.InvalidCredentials)
	}
	return u.ID, nil
}

// Username returns the name of a user id.
func (s *Store) Username(id int64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.usersByID[id]
	if !ok {
		return "", false
	}
	return u.Username, true
}

// Contest returns a contest as seen by userID (0 for anonymous).
func (s *Store) Contest(id string, userID int64) (contest.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.contests[id]
	if !ok {
		return contest.Contest{}, errors.New(errors.ContestNotFound)
	}
	return rec.view(userID), nil
}

// Contests lists contests ordered by start time.
func (s *Store) Contests(userID int64) []contest.Contest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]contest.Contest, 0, len(s.contests))
	for _, rec := range s.contests {
		out = append(out, rec.view(userID))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// Join registers userID for a contest. Joining an ended contest fails.
func (s *Store) Join(id string, userID int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.contests[id]
	if !ok {
		return errors.New(errors.ContestNotFound)
	}
	if !now.Before(rec.EndTime) {
		return errors.New(errors.RegistrationClosed)
	}
	if rec.participants[userID] {
		return errors.New(errors.AlreadyRegistered)
	}
	rec.participants[userID] = true
	return nil
}

// Problem returns a problem and its hidden cases.
func (s *Store) Problem(id string) (contest.Problem, []contest.TestCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.problems[id]
	if !ok {
		return contest.Problem{}, nil, errors.New(errors.ProblemNotFound)
	}
	return rec.Problem, rec.hidden, nil
}

// Problems lists problem references ordered by id.
func (s *Store) Problems() []contest.ProblemRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]contest.ProblemRef, 0, len(s.problems))
	for _, p := range s.problems {
		out = append(out, contest.ProblemRef{ID: p.ID, Title: p.Title, Difficulty: p.Difficulty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CheckParticipant verifies userID may submit in the contest right now.
func (s *Store) CheckParticipant(contestID string, userID int64, now time.Time) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.contests[contestID]
	if !ok {
		return errors.New(errors.ContestNotFound)
	}
	if !rec.participants[userID] {
		return errors.New(errors.ContestAccessDenied)
	}
	if !now.Before(rec.EndTime) {
		return errors.New(errors.ContestEnded)
	}
	return nil
}

// AddSubmission records a judged submission.
func (s *Store) AddSubmission(rec SubmissionRecord) SubmissionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	rec.ID = s.nextSubID
	s.submissions = append(s.submissions, rec)
	return rec
}

// Submissions lists a user's submissions, newest first.
func (s *Store) Submissions(userID int64, problemID string) []SubmissionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []SubmissionRecord
	for i := len(s.submissions) - 1; i >= 0; i-- {
		sub := s.submissions[i]
		if sub.UserID != userID {
			continue
		}
		if problemID != "" && sub.ProblemID != problemID {
			continue
		}
		out = append(out, sub)
	}
	return out
}

func (r *contestRecord) view(userID int64) contest.Contest {
	c := r.Contest
	c.Problems = append([]contest.ProblemRef(nil), r.Problems...)
	c.IsParticipant = userID != 0 && r.participants[userID]
	return c
}
