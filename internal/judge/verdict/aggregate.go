package verdict

import "strings"

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// NormalizeLineEndings collapses \r\n and \r to \n.
func NormalizeLineEndings(s string) string {
	return lineEndings.Replace(s)
}

// Equal compares actual and expected output after normalizing both sides.
func Equal(actual, expected string) bool {
	return NormalizeLineEndings(actual) == NormalizeLineEndings(expected)
}

// Overall is the verdict of a multi-case run or submission.
type Overall int

const (
	OverallFailed Overall = iota
	OverallAccepted
)

func (o Overall) String() string {
	if o == OverallAccepted {
		return "Accepted"
	}
	return "Failed"
}

// CaseResult is one decoded case of a multi-case evaluation.
type CaseResult struct {
	Index   int
	Verdict Verdict
	Passed  bool
}

// Report is the aggregated outcome of a run or submit.
type Report struct {
	Cases   []CaseResult
	Overall Overall
}

// Aggregate decodes every case. The overall verdict is Accepted only when
// there is at least one case and each one decodes to Accepted.
func Aggregate(raws []RawResult) Report {
	report := Report{Cases: make([]CaseResult, 0, len(raws))}
	allAccepted := len(raws) > 0
	for i, raw := range raws {
		v := Decode(raw)
		if v.Kind != Accepted {
			allAccepted = false
		}
		report.Cases = append(report.Cases, CaseResult{Index: i, Verdict: v, Passed: v.Passed()})
	}
	if allAccepted {
		report.Overall = OverallAccepted
	}
	return report
}

// Failures lists the indexes of all non-accepted cases.
func (r Report) Failures() []int {
	var out []int
	for _, c := range r.Cases {
		if c.Verdict.Kind != Accepted {
			out = append(out, c.Index)
		}
	}
	return out
}

// AcceptedCount is the number of cases that decoded to Accepted.
func (r Report) AcceptedCount() int {
	n := 0
	for _, c := range r.Cases {
		if c.Verdict.Kind == Accepted {
			n++
		}
	}
	return n
}

// Case returns case i, if present.
func (r Report) Case(i int) (CaseResult, bool) {
	if i < 0 || i >= len(r.Cases) {
		return CaseResult{}, false
	}
	return r.Cases[i], true
}

// CustomResult is a free-form input run. Matched is only set when the user
// supplied an expected value.
type CustomResult struct {
	Verdict  Verdict
	Expected *string
	Matched  *bool
}

// Custom decodes a custom-input run and compares against expected if given.
func Custom(raw RawResult, expected *string) CustomResult {
	raw.ExpectedOutput = expected
	v := Decode(raw)
	res := CustomResult{Verdict: v, Expected: expected}
	if expected != nil {
		matched := v.Passed()
		res.Matched = &matched
	}
	return res
}
