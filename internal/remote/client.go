// Package remote defines what playback needs from the exercise webapp and
// provides an HTTP implementation of it.
package remote

import (
	"context"
	"time"

	"github.com/SmitUplenchwar2687/editplay/internal/editseq"
)

// Client is the webapp as seen by playback. Implementations are used from
// a single goroutine.
type Client interface {
	// Identity returns the authenticated user.
	Identity(ctx context.Context) (Identity, error)
	// RegisteredCourses lists the courses the user is registered in.
	RegisteredCourses(ctx context.Context) ([]Course, error)
	// ProblemsForCourse lists the problems of a course.
	ProblemsForCourse(ctx context.Context, course Course) ([]Problem, error)
	// SetActiveProblem binds the problem later changes and submissions target.
	SetActiveProblem(ctx context.Context, p Problem) error
	// SendChanges sends one batch of changes.
	SendChanges(ctx context.Context, batch []editseq.Change) error
	// SubmitAndPoll submits text for grading and blocks, polling every
	// pollInterval, until the result is ready.
	SubmitAndPoll(ctx context.Context, problemID int64, text string, pollInterval time.Duration) (*SubmissionResult, error)
}
