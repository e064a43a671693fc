package recorder

import (
	"time"
)

// BatchEvent summarizes one change batch received by the webapp.
// Used for streaming to the dashboard.
type BatchEvent struct {
	Time      time.Time `json:"time"`
	Username  string    `json:"username"`
	UserID    int64     `json:"user_id"`
	ProblemID int64     `json:"problem_id"`
	Exercise  string    `json:"exercise"`
	Changes   int       `json:"changes"`
	FullText  bool      `json:"full_text"` // lone full-text change, i.e. a submission
}

// SubmissionEvent reports a graded submission to the dashboard.
type SubmissionEvent struct {
	Time           time.Time `json:"time"`
	Username       string    `json:"username"`
	Exercise       string    `json:"exercise"`
	SubmissionID   string    `json:"submission_id"`
	Compiled       bool      `json:"compiled"`
	TestsAttempted int       `json:"tests_attempted"`
	TestsPassed    int       `json:"tests_passed"`
}
