// Package editseq holds recorded editing sessions: an immutable,
// timestamp-ordered list of changes plus the exercise they belong to.
package editseq

import "sort"

// EditSequence is an immutable recording of one exercise-editing session.
// The zero value is an empty sequence.
type EditSequence struct {
	exercise string
	changes  []Change
}

// New creates a sequence for exercise. Changes are copied and stably
// sorted by timestamp, so ties keep their recording order.
func New(exercise string, changes []Change) *EditSequence {
	sorted := make([]Change, len(changes))
	for i, c := range changes {
		sorted[i] = c.clone()
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})
	return &EditSequence{exercise: exercise, changes: sorted}
}

// ExerciseName returns the key identifying the remote problem this
// recording targets.
func (s *EditSequence) ExerciseName() string {
	return s.exercise
}

// Changes returns a copy of the ordered changes. Every call returns the
// same contents.
func (s *EditSequence) Changes() []Change {
	out := make([]Change, len(s.changes))
	for i, c := range s.changes {
		out[i] = c.clone()
	}
	return out
}

// Len returns the number of changes.
func (s *EditSequence) Len() int {
	return len(s.changes)
}

// Span returns the time covered by the recording in milliseconds.
func (s *EditSequence) Span() int64 {
	if len(s.changes) == 0 {
		return 0
	}
	return s.changes[len(s.changes)-1].Timestamp - s.changes[0].Timestamp
}

// FullTextCount returns how many changes replace the whole buffer.
func (s *EditSequence) FullTextCount() int {
	n := 0
	for _, c := range s.changes {
		if c.IsFullText() {
			n++
		}
	}
	return n
}

// WithIdentity returns a copy attributed to another user and problem.
// Event ids are reset to 0 since the receiving service assigns real ones.
// The receiver is left untouched.
func (s *EditSequence) WithIdentity(userID, problemID int64) *EditSequence {
	out := &EditSequence{
		exercise: s.exercise,
		changes:  s.Changes(),
	}
	for i := range out.changes {
		out.changes[i].EventID = 0
		out.changes[i].UserID = userID
		out.changes[i].ProblemID = problemID
	}
	return out
}
