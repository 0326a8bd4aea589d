// Package verdict decodes judge results into normalized verdicts.
package verdict

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// RawStatus is the nested status object some judges return.
type RawStatus struct {
	ID          *int    `json:"id,omitempty"`
	Description *string `json:"description,omitempty"`
}

// RawResult is one test case result exactly as the judge reported it.
// Every field is optional; nil means the judge did not send it.
type RawResult struct {
	StatusID       *int       `json:"status_id,omitempty"`
	Status         *RawStatus `json:"status,omitempty"`
	Stdout         *string    `json:"stdout,omitempty"`
	Stderr         *string    `json:"stderr,omitempty"`
	CompileOutput  *string    `json:"compile_output,omitempty"`
	Message        *string    `json:"message,omitempty"`
	ExpectedOutput *string    `json:"expected_output,omitempty"`
	Stdin          *string    `json:"stdin,omitempty"`
	Time           *string    `json:"time,omitempty"`
	Memory         *int       `json:"memory,omitempty"`
}

// UnmarshalJSON never fails on shape problems: a field of the wrong type is
// treated as absent and a non-object payload decodes to an empty result.
func (r *RawResult) UnmarshalJSON(data []byte) error {
	*r = RawResult{}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	r.StatusID = lenientInt(fields["status_id"])
	r.Status = lenientStatus(fields["status"])
	r.Stdout = lenientString(fields["stdout"])
	r.Stderr = lenientString(fields["stderr"])
	r.CompileOutput = lenientString(fields["compile_output"])
	r.Message = lenientString(fields["message"])
	r.ExpectedOutput = lenientString(fields["expected_output"])
	r.Stdin = lenientString(fields["stdin"])
	r.Time = lenientText(fields["time"])
	r.Memory = lenientInt(fields["memory"])
	return nil
}

// ParseResults decodes a JSON array of results, skipping nothing: elements
// that are not objects become empty results so case numbering is preserved.
func ParseResults(data []byte) []RawResult {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	out := make([]RawResult, len(items))
	for i, item := range items {
		_ = out[i].UnmarshalJSON(item)
	}
	return out
}

func (r RawResult) statusID() (int, bool) {
	if r.StatusID != nil {
		return *r.StatusID, true
	}
	if r.Status != nil && r.Status.ID != nil {
		return *r.Status.ID, true
	}
	return 0, false
}

func (r RawResult) description() string {
	if r.Status == nil || r.Status.Description == nil {
		return ""
	}
	return strings.TrimSpace(*r.Status.Description)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func lenientString(raw json.RawMessage) *string {
	if isNull(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

func lenientText(raw json.RawMessage) *string {
	if s := lenientString(raw); s != nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil
	}
	s := n.String()
	return &s
}

func lenientInt(raw json.RawMessage) *int {
	if isNull(raw) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return nil
		}
		n := int(f)
		return &n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}

func lenientStatus(raw json.RawMessage) *RawStatus {
	if isNull(raw) {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err == nil {
		st := &RawStatus{
			ID:          lenientInt(fields["id"]),
			Description: lenientString(fields["description"]),
		}
		if st.ID == nil && st.Description == nil {
			return nil
		}
		return st
	}
	// Some judges flatten the status to a bare id or label.
	if id := lenientInt(raw); id != nil {
		return &RawStatus{ID: id}
	}
	if desc := lenientString(raw); desc != nil {
		return &RawStatus{Description: desc}
	}
	return nil
}
