// Package playback replays a recorded edit sequence against the webapp,
// reproducing the editor's periodic flushing of accumulated changes and
// submitting code whenever the recording shows a submission.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SmitUplenchwar2687/editplay/internal/clock"
	"github.com/SmitUplenchwar2687/editplay/internal/editseq"
	"github.com/SmitUplenchwar2687/editplay/internal/remote"
)

const (
	// DefaultSendBatchInterval is how often the editor flushes changes.
	DefaultSendBatchInterval = 2000 * time.Millisecond
	// DefaultPollInterval is how often a pending submission is polled.
	DefaultPollInterval = 1000 * time.Millisecond
)

// Scheduler plays one EditSequence against one authenticated client.
// It is not safe for concurrent use.
type Scheduler struct {
	client remote.Client
	seq    *editseq.EditSequence

	sendBatchInterval  time.Duration
	submitOnFullText   bool
	pollInterval       time.Duration
	onSend             func(batch []editseq.Change)
	onSubmissionResult func(result *remote.SubmissionResult)
	clock              clock.Clock
	logger             *slog.Logger

	// Set by Setup.
	problem *remote.Problem
	bound   *editseq.EditSequence
}

// Summary describes one Play call.
type Summary struct {
	Windows      int                        `json:"windows"`
	Batches      int                        `json:"batches"`
	ChangesSent  int                        `json:"changes_sent"`
	Submissions  int                        `json:"submissions"`
	Results      []*remote.SubmissionResult `json:"results,omitempty"`
	Span         time.Duration              `json:"span"`          // recorded time covered
	WallDuration time.Duration              `json:"wall_duration"` // time Play took on the scheduler's clock
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithSendBatchInterval sets the period of the simulated flush timer.
func WithSendBatchInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.sendBatchInterval = d }
}

// WithSubmitOnFullText sets whether a lone full-text batch is submitted.
func WithSubmitOnFullText(on bool) Option {
	return func(s *Scheduler) { s.submitOnFullText = on }
}

// WithPollInterval sets how often a pending submission is polled.
func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.pollInterval = d }
}

// WithOnSend sets a callback invoked with each batch right before it is sent.
func WithOnSend(fn func(batch []editseq.Change)) Option {
	return func(s *Scheduler) { s.onSend = fn }
}

// WithOnSubmissionResult sets a callback invoked after each submission is graded.
func WithOnSubmissionResult(fn func(result *remote.SubmissionResult)) Option {
	return func(s *Scheduler) { s.onSubmissionResult = fn }
}

// WithClock sets the clock used for pacing.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// New creates a scheduler that plays seq through client. The client should
// already be logged in.
func New(client remote.Client, seq *editseq.EditSequence, opts ...Option) *Scheduler {
	s := &Scheduler{
		client:            client,
		seq:               seq,
		sendBatchInterval: DefaultSendBatchInterval,
		submitOnFullText:  true,
		pollInterval:      DefaultPollInterval,
		clock:             clock.NewRealClock(),
		logger:            slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetSendBatchInterval changes the flush period. Only allowed before Setup.
func (s *Scheduler) SetSendBatchInterval(d time.Duration) error {
	return s.configure(WithSendBatchInterval(d))
}

// SetSubmitOnFullText changes submission handling. Only allowed before Setup.
func (s *Scheduler) SetSubmitOnFullText(on bool) error {
	return s.configure(WithSubmitOnFullText(on))
}

// SetPollInterval changes the submission poll period. Only allowed before Setup.
func (s *Scheduler) SetPollInterval(d time.Duration) error {
	return s.configure(WithPollInterval(d))
}

// SetOnSend replaces the send callback. Only allowed before Setup.
func (s *Scheduler) SetOnSend(fn func(batch []editseq.Change)) error {
	return s.configure(WithOnSend(fn))
}

// SetOnSubmissionResult replaces the result callback. Only allowed before Setup.
func (s *Scheduler) SetOnSubmissionResult(fn func(result *remote.SubmissionResult)) error {
	return s.configure(WithOnSubmissionResult(fn))
}

func (s *Scheduler) configure(o Option) error {
	if s.problem != nil {
		return ErrAlreadySetUp
	}
	o(s)
	return nil
}

// Problem returns the problem bound by Setup, or nil.
func (s *Scheduler) Problem() *remote.Problem {
	return s.problem
}

// Setup attributes the recording to the client's identity, finds the
// problem named by the recording and makes it the client's active problem.
// It must succeed once before Play.
func (s *Scheduler) Setup(ctx context.Context) error {
	if s.problem != nil {
		return ErrAlreadySetUp
	}
	if s.seq == nil || s.seq.Len() == 0 {
		return ErrEmptySequence
	}
	if s.sendBatchInterval < time.Millisecond {
		return fmt.Errorf("playback: send batch interval must be at least 1ms, got %s", s.sendBatchInterval)
	}
	if s.pollInterval <= 0 {
		return fmt.Errorf("playback: poll interval must be positive, got %s", s.pollInterval)
	}

	id, err := s.client.Identity(ctx)
	if err != nil {
		return fmt.Errorf("getting identity: %w", err)
	}

	problem, err := s.findProblem(ctx, s.seq.ExerciseName())
	if err != nil {
		return err
	}

	if err := s.client.SetActiveProblem(ctx, problem); err != nil {
		return err
	}

	s.bound = s.seq.WithIdentity(id.ID, problem.ID)
	s.problem = &problem
	s.logger.Info("playback ready",
		"exercise", s.seq.ExerciseName(),
		"problem_id", problem.ID,
		"user", id.Username,
		"changes", s.bound.Len())
	return nil
}

// findProblem returns the first problem, in course order, named exercise.
func (s *Scheduler) findProblem(ctx context.Context, exercise string) (remote.Problem, error) {
	courses, err := s.client.RegisteredCourses(ctx)
	if err != nil {
		return remote.Problem{}, err
	}
	for _, course := range courses {
		problems, err := s.client.ProblemsForCourse(ctx, course)
		if err != nil {
			return remote.Problem{}, err
		}
		for _, p := range problems {
			if p.Name == exercise {
				return p, nil
			}
		}
	}
	return remote.Problem{}, &ExerciseNotFoundError{Exercise: exercise}
}

// Play replays the whole sequence, emulating the relative timing and
// batching of the original changes. It may be called any number of times
// after Setup. The first failing send or submission ends playback.
func (s *Scheduler) Play(ctx context.Context) (*Summary, error) {
	if s.problem == nil {
		return nil, ErrNotSetUp
	}

	changes := s.bound.Changes()
	interval := s.sendBatchInterval.Milliseconds()
	summary := &Summary{
		Span: time.Duration(s.bound.Span()) * time.Millisecond,
	}

	start := s.clock.Now()
	nextSend := start.Add(s.sendBatchInterval)
	cur := cursor{windowStart: changes[0].Timestamp}

	for {
		batch, next, done := createBatch(changes, cur, interval)
		if done {
			break
		}
		cur = next
		summary.Windows++

		// Emulate the editor's repeating flush timer.
		if err := clock.SleepUntil(ctx, s.clock, nextSend); err != nil {
			return summary, fmt.Errorf("%w: %w", ErrInterrupted, err)
		}

		if len(batch) > 0 {
			if err := s.flush(ctx, batch, summary); err != nil {
				return summary, err
			}
		}

		nextSend = nextSend.Add(s.sendBatchInterval)
		if now := s.clock.Now(); now.After(nextSend) {
			// Sending took longer than the interval: go again right away
			// rather than bursting to catch up.
			nextSend = now.Add(time.Millisecond)
		}
	}

	summary.WallDuration = s.clock.Since(start)
	s.logger.Info("playback finished",
		"batches", summary.Batches,
		"changes", summary.ChangesSent,
		"submissions", summary.Submissions,
		"wall_duration", summary.WallDuration)
	return summary, nil
}

func (s *Scheduler) flush(ctx context.Context, batch []editseq.Change, summary *Summary) error {
	if s.onSend != nil {
		s.onSend(batch)
	}
	if err := s.client.SendChanges(ctx, batch); err != nil {
		return err
	}
	summary.Batches++
	summary.ChangesSent += len(batch)
	s.logger.Debug("sent batch", "changes", len(batch), "first_ts", batch[0].Timestamp)

	if !s.submitOnFullText || len(batch) != 1 || !batch[0].IsFullText() {
		return nil
	}

	result, err := s.client.SubmitAndPoll(ctx, s.problem.ID, batch[0].Text, s.pollInterval)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrInterrupted, err)
		}
		return err
	}
	summary.Submissions++
	summary.Results = append(summary.Results, result)
	if s.onSubmissionResult != nil {
		s.onSubmissionResult(result)
	}
	return nil
}
