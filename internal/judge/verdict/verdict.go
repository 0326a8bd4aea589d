package verdict

import (
	"fmt"
	"strings"
)

// OutcomeKind is the normalized judge outcome.
type OutcomeKind int

const (
	Unknown OutcomeKind = iota
	Accepted
	WrongAnswer
	TimeLimitExceeded
	MemoryLimitExceeded
	CompilationError
	RuntimeError
	InQueue
	Processing
)

var kindNames = map[OutcomeKind]string{
	Unknown:             "Unknown",
	Accepted:            "Accepted",
	WrongAnswer:         "Wrong Answer",
	TimeLimitExceeded:   "Time Limit Exceeded",
	MemoryLimitExceeded: "Memory Limit Exceeded",
	CompilationError:    "Compilation Error",
	RuntimeError:        "Runtime Error",
	InQueue:             "In Queue",
	Processing:          "Processing",
}

func (k OutcomeKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Pending reports whether the judge has not finished the case yet.
func (k OutcomeKind) Pending() bool {
	return k == InQueue || k == Processing
}

// KindOf maps a judge status id to its outcome. The table is fixed by the judge.
func KindOf(statusID int) OutcomeKind {
	switch {
	case statusID == 1:
		return InQueue
	case statusID == 2:
		return Processing
	case statusID == 3:
		return Accepted
	case statusID == 4:
		return WrongAnswer
	case statusID == 5, statusID == 15:
		return TimeLimitExceeded
	case statusID == 6, statusID == 70:
		return CompilationError
	case statusID >= 7 && statusID <= 14:
		return RuntimeError
	default:
		return Unknown
	}
}

// OutputSource records which raw field produced the displayed text.
type OutputSource int

const (
	SourceTemplate OutputSource = iota
	SourceStdout
	SourceStderr
	SourceCompileOutput
	SourceMessage
)

const (
	stderrPrefix  = "Error: "
	compilePrefix = "Compilation Error: "
)

// Verdict is the decoded, immutable interpretation of one judge result.
type Verdict struct {
	Kind        OutcomeKind
	StatusID    int
	HasStatusID bool
	// Description is the judge's own status label, if any.
	Description string
	// Conflict is set when Description names a different outcome than StatusID.
	Conflict bool

	Stdout         *string
	Stderr         *string
	CompileOutput  *string
	Message        *string
	ExpectedOutput *string
	Stdin          *string
	Time           string
	MemoryKB       int

	Output       string
	OutputSource OutputSource
}

// Decode turns one raw judge result into a Verdict. It never panics and
// never fails; missing fields fall back to templated text.
func Decode(raw RawResult) Verdict {
	v := Verdict{
		Stdout:         raw.Stdout,
		Stderr:         raw.Stderr,
		CompileOutput:  raw.CompileOutput,
		Message:        raw.Message,
		ExpectedOutput: raw.ExpectedOutput,
		Stdin:          raw.Stdin,
		Description:    raw.description(),
	}
	if raw.Time != nil {
		v.Time = *raw.Time
	}
	if raw.Memory != nil {
		v.MemoryKB = *raw.Memory
	}

	v.StatusID, v.HasStatusID = raw.statusID()
	if v.HasStatusID {
		v.Kind = KindOf(v.StatusID)
	}
	if v.Kind != Unknown && v.Description != "" {
		if described, ok := describedKind(v.Description); ok && described != v.Kind {
			v.Conflict = true
		}
	}

	v.Output, v.OutputSource = selectOutput(v)
	return v
}

// selectOutput applies the display precedence: stdout, stderr, compile
// output, message, an explicitly empty stdout, then a templated message.
func selectOutput(v Verdict) (string, OutputSource) {
	switch {
	case nonEmpty(v.Stdout):
		return *v.Stdout, SourceStdout
	case nonEmpty(v.Stderr):
		return stderrPrefix + *v.Stderr, SourceStderr
	case nonEmpty(v.CompileOutput):
		return compilePrefix + *v.CompileOutput, SourceCompileOutput
	case nonEmpty(v.Message):
		return *v.Message, SourceMessage
	case v.Stdout != nil:
		return "", SourceStdout
	}
	return templateMessage(v), SourceTemplate
}

func templateMessage(v Verdict) string {
	switch {
	case v.Kind == InQueue:
		return "queued"
	case v.Kind == Processing:
		return "processing"
	case v.Kind == Unknown && v.HasStatusID:
		return fmt.Sprintf("status %d", v.StatusID)
	default:
		return "no output"
	}
}

// StatusText is the label shown next to a result. The judge's description is
// preferred; when it disagrees with the numeric mapping both are shown.
func (v Verdict) StatusText() string {
	if v.Kind == Unknown {
		switch {
		case v.Description != "":
			return v.Description
		case v.HasStatusID:
			return fmt.Sprintf("Status %d", v.StatusID)
		default:
			return "Unknown"
		}
	}
	if v.Description == "" {
		if v.Kind == RuntimeError {
			return fmt.Sprintf("%s (status %d)", v.Kind, v.StatusID)
		}
		return v.Kind.String()
	}
	if v.Conflict {
		return fmt.Sprintf("%s [status %d maps to %s]", v.Description, v.StatusID, v.Kind)
	}
	return v.Description
}

// Passed reports whether the case's stdout equals its expected output after
// line-ending normalization. An absent expected output never passes.
func (v Verdict) Passed() bool {
	if v.ExpectedOutput == nil || v.OutputSource != SourceStdout {
		return false
	}
	return Equal(v.Output, *v.ExpectedOutput)
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}

func describedKind(desc string) (OutcomeKind, bool) {
	d := strings.ToLower(desc)
	switch {
	case strings.Contains(d, "wrong answer"):
		return WrongAnswer, true
	case strings.Contains(d, "time limit"):
		return TimeLimitExceeded, true
	case strings.Contains(d, "memory limit"):
		return MemoryLimitExceeded, true
	case strings.Contains(d, "compil"):
		return CompilationError, true
	case strings.Contains(d, "runtime error"):
		return RuntimeError, true
	case strings.Contains(d, "in queue"), strings.Contains(d, "queued"):
		return InQueue, true
	case strings.Contains(d, "processing"):
		return Processing, true
	case strings.Contains(d, "accepted"):
		return Accepted, true
	}
	return Unknown, false
}
