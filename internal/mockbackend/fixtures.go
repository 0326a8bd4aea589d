package mockbackend

import (
	"time"

	"ojarena/internal/contest"
	"ojarena/internal/language"
)

// DemoConfig is a small built-in fixture set: two users, one ongoing contest
// with two problems, and one finished contest.
func DemoConfig() Config {
	cfg := Config{
		Users: []UserFixture{
			{Username: "alice", Password: "alice123"},
			{Username: "bob", Password: "bob123"},
		},
		Problems: []ProblemFixture{
			{
				Problem: contest.Problem{
					ID:          "sum",
					Title:       "A Plus B",
					Difficulty:  "easy",
					Description: "Read two integers and print their sum.",
					Constraints: []string{"-10^9 <= a, b <= 10^9"},
					VisibleTestCases: []contest.TestCase{
						{Input: "1 2\n", Output: "3\n"},
						{Input: "-5 5\n", Output: "0\n", Explanation: "Negative numbers are allowed."},
					},
					StarterCode: []language.StarterCode{
						{Language: "cpp", Code: "#include <iostream>\n\nint main() {\n    long long a, b;\n    std::cin >> a >> b;\n    return 0;\n}\n"},
						{Language: "Python", Code: "a, b = map(int, input().split())\n"},
					},
				},
				HiddenTestCases: []contest.TestCase{
					{Input: "1000000000 1000000000\n", Output: "2000000000\n"},
				},
			},
			{
				Problem: contest.Problem{
					ID:          "paths",
					Title:       "Grid Paths",
					Difficulty:  "medium",
					Description: "Count monotone lattice paths in an n x m grid modulo 1e9+7.",
					Constraints: []string{"1 <= n, m <= 1000"},
					VisibleTestCases: []contest.TestCase{
						{Input: "2 2\n", Output: "2\n"},
					},
					StarterCode: []language.StarterCode{
						{Language: "java", Code: "import java.util.*;\n\npublic class Main {\n    public static void main(String[] args) {\n    }\n}\n"},
					},
				},
				HiddenTestCases: []contest.TestCase{
					{Input: "3 3\n", Output: "6\n"},
					{Input: "1 7\n", Output: "1\n"},
				},
			},
		},
		Contests: []ContestFixture{
			{
				ID:           "weekly-1",
				Title:        "Weekly Round 1",
				Description:  "Two problems, two hours.",
				StartsIn:     -10 * time.Minute,
				Duration:     2 * time.Hour,
				Problems:     []string{"sum", "paths"},
				Participants: []string{"alice"},
			},
			{
				ID:           "archive-0",
				Title:        "Archive Round 0",
				StartsIn:     -48 * time.Hour,
				Duration:     2 * time.Hour,
				Problems:     []string{"sum"},
				Participants: []string{"alice", "bob"},
			},
		},
	}
	applyDefaults(&cfg)
	return cfg
}
