package server

import (
	"fmt"
	"strings"

	"github.com/SmitUplenchwar2687/editplay/internal/remote"
)

// grade is a stand-in for a real compiler and test runner. Code "compiles"
// when it is non-empty and its braces and parentheses balance; each test
// passes when the code contains the test's expected text.
func grade(p *CatalogProblem, text string) remote.SubmissionResult {
	if diags := compileCheck(text); len(diags) > 0 {
		return remote.SubmissionResult{
			Outcome:     remote.CompilationFailure,
			Diagnostics: diags,
		}
	}

	result := remote.SubmissionResult{
		Outcome:        remote.CompilationSuccess,
		TestsAttempted: len(p.Tests),
		Tests:          make([]remote.TestOutcome, 0, len(p.Tests)),
	}
	for _, tc := range p.Tests {
		out := remote.TestOutcome{Name: tc.Name, Passed: strings.Contains(text, tc.Expect)}
		if out.Passed {
			result.TestsPassed++
		} else {
			out.Message = fmt.Sprintf("expected output containing %q", tc.Expect)
		}
		result.Tests = append(result.Tests, out)
	}
	return result
}

func compileCheck(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{"empty source"}
	}

	var stack []rune
	line := 1
	pairs := map[rune]rune{')': '(', '}': '{'}
	for _, ch := range text {
		switch ch {
		case '\n':
			line++
		case '(', '{':
			stack = append(stack, ch)
		case ')', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[ch] {
				return []string{fmt.Sprintf("line %d: unexpected '%c'", line, ch)}
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return []string{fmt.Sprintf("line %d: unclosed '%c'", line, stack[len(stack)-1])}
	}
	return nil
}
