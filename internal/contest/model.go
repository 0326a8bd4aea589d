// Package contest implements the contest solving session: countdown, lock,
// problem switching and the run/submit pipeline.
package contest

import (
	"strings"
	"time"

	"ojarena/internal/language"
)

// Status is derived from the current time, never stored.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusOngoing  Status = "ongoing"
	StatusEnded    Status = "ended"
)

// ProblemRef is a problem listed in a contest.
type ProblemRef struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Difficulty string `json:"difficulty"`
}

// Contest is a server snapshot. It is replaced by re-fetching, never edited.
type Contest struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	StartTime     time.Time    `json:"startTime"`
	EndTime       time.Time    `json:"endTime"`
	Problems      []ProblemRef `json:"problems"`
	IsParticipant bool         `json:"isParticipant"`
}

// StatusAt derives the contest status at now.
func (c Contest) StatusAt(now time.Time) Status {
	switch {
	case now.Before(c.StartTime):
		return StatusUpcoming
	case now.Before(c.EndTime):
		return StatusOngoing
	default:
		return StatusEnded
	}
}

// IndexOf returns the position of problemID in the contest, or -1.
func (c Contest) IndexOf(problemID string) int {
	for i, p := range c.Problems {
		if p.ID == problemID {
			return i
		}
	}
	return -1
}

// TestCase is a visible example of a problem.
type TestCase struct {
	Input       string `json:"input" yaml:"input"`
	Output      string `json:"output" yaml:"output"`
	Explanation string `json:"explanation,omitempty" yaml:"explanation"`
}

// Problem is the full problem detail.
type Problem struct {
	ID               string                 `json:"id" yaml:"id"`
	Title            string                 `json:"title" yaml:"title"`
	Difficulty       string                 `json:"difficulty" yaml:"difficulty"`
	Description      string                 `json:"description" yaml:"description"`
	Constraints      []string               `json:"constraints" yaml:"constraints"`
	VisibleTestCases []TestCase             `json:"visibleTestCases" yaml:"visibleTestCases"`
	StarterCode      []language.StarterCode `json:"starterCode" yaml:"starterCode"`
}

// Letter returns the tab label of the i-th problem: A..Z, AA, AB...
func Letter(i int) string {
	if i < 0 {
		return "?"
	}
	var b []byte
	for n := i; ; n = n/26 - 1 {
		b = append([]byte{byte('A' + n%26)}, b...)
		if n < 26 {
			break
		}
	}
	return string(b)
}

// ParseLetter is the inverse of Letter. It returns -1 for invalid input.
func ParseLetter(s string) int {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return -1
	}
	n := 0
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return -1
		}
		n = n*26 + int(r-'A') + 1
	}
	return n - 1
}
