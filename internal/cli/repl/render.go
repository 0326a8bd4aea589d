package repl

import (
	"fmt"
	"strconv"
	"strings"

	"ojarena/internal/contest"
	"ojarena/internal/judge/verdict"
	"ojarena/internal/language"
)

func (s *Shell) renderProblemList(v contest.View) {
	for i, p := range v.Contest.Problems {
		marker := " "
		if i == v.Selected {
			marker = "*"
		}
		diff := ""
		if p.Difficulty != "" {
			diff = " [" + p.Difficulty + "]"
		}
		s.printLine("%s %s. %s%s", marker, contest.Letter(i), p.Title, diff)
	}
}

func (s *Shell) renderProblem(v contest.View) {
	if v.Problem == nil {
		return
	}
	p := v.Problem
	s.printLine("")
	s.printLine("== %s ==", v.ProblemLabel())
	if p.Difficulty != "" {
		s.printLine("difficulty: %s", p.Difficulty)
	}
	if p.Description != "" {
		s.printLine("%s", strings.TrimRight(p.Description, "\n"))
	}
	if len(p.Constraints) > 0 {
		s.printLine("constraints:")
		for _, c := range p.Constraints {
			s.printLine("  - %s", c)
		}
	}
	for i, tc := range p.VisibleTestCases {
		s.printLine("example %d", i+1)
		s.printLine("  input:\n%s", indent(tc.Input))
		s.printLine("  output:\n%s", indent(tc.Output))
		if tc.Explanation != "" {
			s.printLine("  explanation: %s", tc.Explanation)
		}
	}
	s.printLine("language: %s (available: %s)", v.Language, strings.Join(language.Available(p.StarterCode), ", "))
}

func (s *Shell) showReport(label string, report verdict.Report) {
	rep := report
	s.lastReport, s.lastLabel = &rep, label
	s.caseIdx = 0
	n := len(report.Cases)
	if n == 0 {
		s.printLine("%s: %s (no test cases returned)", label, report.Overall)
		return
	}
	s.printLine("%s: %s  %d/%d cases accepted", label, report.Overall, report.AcceptedCount(), n)
	for _, c := range report.Cases {
		s.printLine("  case %d: %s%s", c.Index+1, c.Verdict.StatusText(), usage(c.Verdict))
	}
	if report.Overall != verdict.OverallAccepted {
		if failed := report.Failures(); len(failed) > 0 {
			s.printLine("failed cases: %s (case <n>|next|prev to browse)", caseList(failed))
		}
		c, _ := report.Case(s.caseIdx)
		s.renderCase(label, c, n)
	}
}

func (s *Shell) renderCase(label string, c verdict.CaseResult, total int) {
	v := c.Verdict
	s.printLine("-- %s case %d/%d: %s --", label, c.Index+1, total, v.StatusText())
	if v.Stdin != nil {
		s.printLine("input:\n%s", indent(*v.Stdin))
	}
	if v.ExpectedOutput != nil {
		s.printLine("expected:\n%s", indent(*v.ExpectedOutput))
	}
	s.printLine("%s:\n%s", outputLabel(v.OutputSource), indent(v.Output))
}

func (s *Shell) renderCustom(res verdict.CustomResult) {
	v := res.Verdict
	s.printLine("custom run: %s%s", v.StatusText(), usage(v))
	s.printLine("%s:\n%s", outputLabel(v.OutputSource), indent(v.Output))
	if res.Matched != nil {
		if *res.Matched {
			s.printLine("output matches expected")
		} else {
			s.printLine("output differs from expected:\n%s", indent(*res.Expected))
		}
	}
}

func caseList(indexes []int) string {
	parts := make([]string, len(indexes))
	for i, idx := range indexes {
		parts[i] = strconv.Itoa(idx + 1)
	}
	return strings.Join(parts, ", ")
}

func outputLabel(src verdict.OutputSource) string {
	switch src {
	case verdict.SourceStdout:
		return "output"
	case verdict.SourceStderr:
		return "stderr"
	case verdict.SourceCompileOutput:
		return "compiler"
	default:
		return "message"
	}
}

func usage(v verdict.Verdict) string {
	var parts []string
	if v.Time != "" {
		parts = append(parts, v.Time+"s")
	}
	if v.MemoryKB > 0 {
		parts = append(parts, fmt.Sprintf("%d KB", v.MemoryKB))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func indent(text string) string {
	text = strings.TrimRight(verdict.NormalizeLineEndings(text), "\n")
	if text == "" {
		return "    <empty>"
	}
	return "    " + strings.ReplaceAll(text, "\n", "\n    ")
}
