// Package recorder captures incoming edit changes so a live session can be
// saved and replayed later.
package recorder

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/SmitUplenchwar2687/editplay/internal/editseq"
)

// Recorder captures the changes of one editing session.
// Thread-safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	exercise string
	changes  []editseq.Change
	writer   io.Writer // optional: stream changes as they arrive
}

// New creates a Recorder for exercise. If w is non-nil, changes are also
// written to w as newline-delimited JSON as they arrive.
func New(exercise string, w io.Writer) *Recorder {
	return &Recorder{
		exercise: exercise,
		writer:   w,
	}
}

// Record captures a batch of changes.
func (r *Recorder) Record(batch []editseq.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.changes = append(r.changes, batch...)

	if r.writer != nil {
		enc := json.NewEncoder(r.writer)
		for _, c := range batch {
			if err := enc.Encode(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// Len returns the number of recorded changes.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

// Sequence returns everything recorded so far as an edit sequence.
func (r *Recorder) Sequence() *editseq.EditSequence {
	r.mu.Lock()
	defer r.mu.Unlock()
	return editseq.New(r.exercise, r.changes)
}

// ExportFile writes the recorded session to path. See editseq.WriteFile
// for the format.
func (r *Recorder) ExportFile(path string) error {
	return r.Sequence().WriteFile(path)
}
