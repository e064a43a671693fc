package playback

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSetUp is returned by Play when Setup has not succeeded.
	ErrNotSetUp = errors.New("playback: Setup must succeed before Play")
	// ErrAlreadySetUp is returned when Setup runs twice or a setting is
	// changed after Setup.
	ErrAlreadySetUp = errors.New("playback: already set up")
	// ErrEmptySequence means the recording holds no changes.
	ErrEmptySequence = errors.New("playback: edit sequence is empty")
	// ErrInterrupted means the context ended while playback was waiting.
	// Playback state is undefined afterwards.
	ErrInterrupted = errors.New("playback: interrupted")
)

// ExerciseNotFoundError means no registered course has a problem whose name
// matches the recording's exercise.
type ExerciseNotFoundError struct {
	Exercise string
}

func (e *ExerciseNotFoundError) Error() string {
	return fmt.Sprintf("playback: could not find exercise %q in any registered course", e.Exercise)
}
