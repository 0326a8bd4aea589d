// Package draft keeps unsubmitted editor buffers between sessions. Drafts
// are a convenience cache: losing one never affects a contest.
package draft

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ojarena/internal/cli/config"
	"ojarena/pkg/errors"
)

// Draft is one saved buffer.
type Draft struct {
	ContestID   string    `json:"contestId"`
	ProblemID   string    `json:"problemId"`
	Language    string    `json:"language"`
	Source      string    `json:"source"`
	CustomInput string    `json:"customInput,omitempty"`
	SavedAt     time.Time `json:"savedAt"`
}

// Store persists drafts keyed by contest and problem.
type Store interface {
	Save(ctx context.Context, d Draft) error
	Load(ctx context.Context, contestID, problemID string) (Draft, error)
	Delete(ctx context.Context, contestID, problemID string) error
	Close() error
}

// Key is the storage key of a draft.
func Key(contestID, problemID string) string {
	return sanitize(contestID) + "/" + sanitize(problemID)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}

func notFound(contestID, problemID string) error {
	return errors.New(errors.DraftNotFound).
		WithDetail("contest_id", contestID).
		WithDetail("problem_id", problemID)
}

// Open builds the store selected by cfg. Backend "off" returns a store that
// keeps nothing.
func Open(cfg config.DraftConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "file":
		store, err := NewFileStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		store, err := NewRedisStore(cfg.Redis, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "off", "none":
		return nopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown draft backend %q", cfg.Backend)
	}
}

type nopStore struct{}

func (nopStore) Save(context.Context, Draft) error { return nil }
func (nopStore) Load(_ context.Context, contestID, problemID string) (Draft, error) {
	return Draft{}, notFound(contestID, problemID)
}
func (nopStore) Delete(context.Context, string, string) error { return nil }
func (nopStore) Close() error                                 { return nil }
