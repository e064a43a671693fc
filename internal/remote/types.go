package remote

import (
	"time"

	"github.com/SmitUplenchwar2687/editplay/internal/editseq"
)

// Identity is the authenticated user.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Course is a course the user is registered in.
type Course struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
	Term  string `json:"term,omitempty"`
}

// Problem is an exercise within a course. Name is the key recordings
// refer to.
type Problem struct {
	ID         int64      `json:"id"`
	CourseID   int64      `json:"course_id"`
	Name       string     `json:"name"`
	Brief      string     `json:"brief,omitempty"`
	QuizEndsAt *time.Time `json:"quiz_ends_at,omitempty"`
}

// CompilationOutcome says whether a submission compiled.
type CompilationOutcome string

const (
	CompilationSuccess CompilationOutcome = "success"
	CompilationFailure CompilationOutcome = "failure"
)

// TestOutcome is the result of one test case.
type TestOutcome struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// SubmissionResult is the graded outcome of a code submission.
type SubmissionResult struct {
	SubmissionID   string             `json:"submission_id"`
	Outcome        CompilationOutcome `json:"outcome"`
	Diagnostics    []string           `json:"diagnostics,omitempty"`
	TestsAttempted int                `json:"tests_attempted"`
	TestsPassed    int                `json:"tests_passed"`
	Tests          []TestOutcome      `json:"tests,omitempty"`
}

// Compiled reports whether the submission compiled.
func (r *SubmissionResult) Compiled() bool {
	return r.Outcome == CompilationSuccess
}

// Wire payloads shared by HTTPClient and the stub webapp.

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string   `json:"token"`
	User  Identity `json:"user"`
}

type SetProblemRequest struct {
	ProblemID int64 `json:"problem_id"`
}

type ChangeBatch struct {
	Changes []editseq.Change `json:"changes"`
}

type SubmitRequest struct {
	ProblemID int64  `json:"problem_id"`
	Text      string `json:"text"`
}

type SubmitResponse struct {
	SubmissionID string `json:"submission_id"`
}

// SubmissionStatus is returned while a submission is still being graded.
type SubmissionStatus struct {
	SubmissionID string `json:"submission_id"`
	Status       string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
