// Package playback exposes the edit sequence player for embedding: build a
// client, log in, then Setup and Play a Scheduler.
package playback

import (
	"log/slog"
	"time"

	"github.com/SmitUplenchwar2687/editplay/internal/playback"
	"github.com/SmitUplenchwar2687/editplay/internal/remote"
	"github.com/SmitUplenchwar2687/editplay/pkg/clock"
	"github.com/SmitUplenchwar2687/editplay/pkg/editseq"
)

// Scheduler plays one recording against one authenticated client.
type Scheduler = playback.Scheduler

// Option configures a Scheduler.
type Option = playback.Option

// Summary describes one Play call.
type Summary = playback.Summary

// Batch is one planned send.
type Batch = playback.Batch

// ExerciseNotFoundError means no registered course has the recording's
// exercise.
type ExerciseNotFoundError = playback.ExerciseNotFoundError

// Client is the webapp surface a Scheduler needs.
type Client = remote.Client

// HTTPClient talks to the webapp's JSON API.
type HTTPClient = remote.HTTPClient

// SubmissionResult is the graded outcome of a submission.
type SubmissionResult = remote.SubmissionResult

const (
	DefaultSendBatchInterval = playback.DefaultSendBatchInterval
	DefaultPollInterval      = playback.DefaultPollInterval
)

var (
	ErrNotSetUp       = playback.ErrNotSetUp
	ErrAlreadySetUp   = playback.ErrAlreadySetUp
	ErrEmptySequence  = playback.ErrEmptySequence
	ErrInterrupted    = playback.ErrInterrupted
	ErrAuthentication = remote.ErrAuthentication
)

// New creates a Scheduler for seq.
func New(client Client, seq *editseq.EditSequence, opts ...Option) *Scheduler {
	return playback.New(client, seq, opts...)
}

// Plan returns the windows Play would send for seq, without sending.
func Plan(seq *editseq.EditSequence, interval time.Duration) []Batch {
	return playback.Plan(seq, interval.Milliseconds())
}

// NewHTTPClient creates a client for the webapp at baseURL, running its
// polling on c.
func NewHTTPClient(baseURL string, c clock.Clock, logger *slog.Logger) (*HTTPClient, error) {
	opts := []remote.Option{remote.WithClock(c)}
	if logger != nil {
		opts = append(opts, remote.WithLogger(logger))
	}
	return remote.NewHTTPClient(baseURL, opts...)
}

func WithSendBatchInterval(d time.Duration) Option { return playback.WithSendBatchInterval(d) }
func WithSubmitOnFullText(on bool) Option          { return playback.WithSubmitOnFullText(on) }
func WithPollInterval(d time.Duration) Option      { return playback.WithPollInterval(d) }
func WithClock(c clock.Clock) Option               { return playback.WithClock(c) }
func WithLogger(l *slog.Logger) Option             { return playback.WithLogger(l) }

func WithOnSend(fn func(batch []editseq.Change)) Option {
	return playback.WithOnSend(fn)
}

func WithOnSubmissionResult(fn func(result *SubmissionResult)) Option {
	return playback.WithOnSubmissionResult(fn)
}
