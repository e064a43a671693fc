package editseq

import (
	"encoding/json"
	"fmt"
)

// Kind distinguishes incremental edits from whole-buffer replacements.
type Kind int

const (
	// KindDelta is an incremental text edit.
	KindDelta Kind = iota
	// KindFullText replaces the whole buffer. The editor emits one when
	// the user submits.
	KindFullText
)

func (k Kind) String() string {
	switch k {
	case KindDelta:
		return "delta"
	case KindFullText:
		return "full_text"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("change kind: %w", err)
	}
	switch s {
	case "delta":
		*k = KindDelta
	case "full_text":
		*k = KindFullText
	default:
		return fmt.Errorf("unknown change kind %q", s)
	}
	return nil
}

// Delta describes an incremental edit. Playback treats it as opaque.
type Delta struct {
	Op       string `json:"op"` // e.g. "insert_text", "remove_lines"
	StartRow int    `json:"start_row"`
	StartCol int    `json:"start_col"`
	EndRow   int    `json:"end_row"`
	EndCol   int    `json:"end_col"`
	Text     string `json:"text,omitempty"`
}

// Change is a single recorded edit event.
type Change struct {
	Kind      Kind   `json:"kind"`
	Timestamp int64  `json:"timestamp"` // milliseconds at capture time
	Text      string `json:"text,omitempty"`
	Delta     *Delta `json:"delta,omitempty"`

	EventID   int64 `json:"event_id"`
	UserID    int64 `json:"user_id"`
	ProblemID int64 `json:"problem_id"`
}

// IsFullText reports whether c replaces the whole buffer.
func (c Change) IsFullText() bool {
	return c.Kind == KindFullText
}

func (c Change) clone() Change {
	if c.Delta != nil {
		d := *c.Delta
		c.Delta = &d
	}
	return c
}
