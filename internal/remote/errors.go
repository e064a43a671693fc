package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication means the service rejected the credentials or token.
	ErrAuthentication = errors.New("authentication failed")
	// ErrQuizEnded means the submission window for the problem has closed.
	ErrQuizEnded = errors.New("quiz ended")
)

// SubmissionError means the service rejected or failed to grade a submission.
type SubmissionError struct {
	Status int
	Reason string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed (status %d): %s", e.Status, e.Reason)
}

// APIError is any other non-success response from the service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote service returned %d: %s", e.Status, e.Message)
}
