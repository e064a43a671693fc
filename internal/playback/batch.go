package playback

import "github.com/SmitUplenchwar2687/editplay/internal/editseq"

// cursor is the replay position on the recording's own timeline.
// windowStart is the logical start of the next window; pos is the index of
// the first change not yet sent. Tracking pos keeps changes that share a
// timestamp with a full-text change from being sent twice or skipped.
type cursor struct {
	windowStart int64
	pos         int
}

// createBatch collects the unsent changes whose timestamps fall before
// windowStart+interval and returns them with the cursor for the next
// window. done is true once every change has been sent.
//
// A full-text change is never batched with anything else. If the batch is
// still empty it becomes the whole batch and the next window starts just
// after it; otherwise the batch is cut before it and the next window starts
// on it.
func createBatch(changes []editseq.Change, cur cursor, interval int64) (batch []editseq.Change, next cursor, done bool) {
	if cur.pos >= len(changes) {
		return nil, cur, true
	}

	end := cur.windowStart + interval
	next = cursor{windowStart: end, pos: cur.pos}

	for i := cur.pos; i < len(changes); i++ {
		c := changes[i]
		if c.Timestamp >= end {
			break
		}

		if c.IsFullText() {
			if len(batch) == 0 {
				batch = append(batch, c)
				next = cursor{windowStart: c.Timestamp + 1, pos: i + 1}
			} else {
				next = cursor{windowStart: c.Timestamp, pos: i}
			}
			break
		}

		batch = append(batch, c)
		next.pos = i + 1
	}
	return batch, next, false
}

// Batch is one planned send.
type Batch struct {
	WindowStart int64            `json:"window_start"`
	Changes     []editseq.Change `json:"changes"`
}

// IsSubmission reports whether b is a lone full-text change.
func (b Batch) IsSubmission() bool {
	return len(b.Changes) == 1 && b.Changes[0].IsFullText()
}

// Plan runs the batching algorithm over seq without sending anything and
// returns every window in order, empty ones included.
func Plan(seq *editseq.EditSequence, interval int64) []Batch {
	changes := seq.Changes()
	if len(changes) == 0 || interval <= 0 {
		return nil
	}

	var plan []Batch
	cur := cursor{windowStart: changes[0].Timestamp}
	for {
		batch, next, done := createBatch(changes, cur, interval)
		if done {
			return plan
		}
		plan = append(plan, Batch{WindowStart: cur.windowStart, Changes: batch})
		cur = next
	}
}
