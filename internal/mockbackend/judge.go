package mockbackend

import (
	"strings"

	"ojarena/internal/contest"
)

// Marker strings in submitted code select the simulated outcome.
const (
	markerCompileError = "COMPILE_ERROR"
	markerRuntimeError = "RUNTIME_ERROR"
	markerTimeLimit    = "TIME_LIMIT"
	markerWrongAnswer  = "WRONG_ANSWER"
	// markerPartial passes the first case and fails the rest.
	markerPartial = "PARTIAL"
)

type judgeStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// judgeResult mirrors the judge's per-case payload.
type judgeResult struct {
	StatusID       int         `json:"status_id"`
	Status         judgeStatus `json:"status"`
	Stdout         *string     `json:"stdout"`
	Stderr         *string     `json:"stderr"`
	CompileOutput  *string     `json:"compile_output"`
	Message        *string     `json:"message"`
	ExpectedOutput *string     `json:"expected_output,omitempty"`
	Stdin          *string     `json:"stdin,omitempty"`
	Time           string      `json:"time"`
	Memory         int         `json:"memory"`
}

func (r judgeResult) accepted() bool { return r.StatusID == 3 }

// evaluate simulates running code on one case. Nothing is executed.
func evaluate(code string, tc contest.TestCase, withExpected bool) judgeResult {
	res := judgeResult{Time: "0.01", Memory: 3200}
	input := tc.Input
	res.Stdin = &input
	if withExpected {
		expected := tc.Output
		res.ExpectedOutput = &expected
	}

	set := func(id int, desc string) {
		res.StatusID = id
		res.Status = judgeStatus{ID: id, Description: desc}
	}
	switch {
	case strings.TrimSpace(code) == "" || strings.Contains(code, markerCompileError):
		set(6, "Compilation Error")
		out := "main.cpp:1:1: error: expected unqualified-id"
		res.CompileOutput = &out
		res.Time = ""
	case strings.Contains(code, markerRuntimeError):
		set(11, "Runtime Error (NZEC)")
		stderr := "terminate called after throwing an instance of 'std::out_of_range'"
		res.Stderr = &stderr
	case strings.Contains(code, markerTimeLimit):
		set(5, "Time Limit Exceeded")
		res.Time = "2.00"
	case strings.Contains(code, markerWrongAnswer):
		set(4, "Wrong Answer")
		out := "0\n"
		res.Stdout = &out
	default:
		set(3, "Accepted")
		out := tc.Output
		res.Stdout = &out
	}
	return res
}

// evaluateCustom simulates a run on user input. Accepted runs echo stdin.
func evaluateCustom(code, input string) judgeResult {
	return evaluate(code, contest.TestCase{Input: input, Output: input}, false)
}

func judgeAll(code string, cases []contest.TestCase) ([]judgeResult, int) {
	results := make([]judgeResult, 0, len(cases))
	passed := 0
	for i, tc := range cases {
		caseCode := code
		if i > 0 && strings.Contains(code, markerPartial) {
			caseCode = markerWrongAnswer
		}
		r := evaluate(caseCode, tc, true)
		if r.accepted() {
			passed++
		}
		results = append(results, r)
	}
	return results, passed
}
