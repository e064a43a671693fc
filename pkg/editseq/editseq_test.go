package editseq

import (
	"path/filepath"
	"testing"
)

func TestRoundTripThroughFile(t *testing.T) {
	seq := New("helloWorld", []Change{
		{Kind: KindFullText, Timestamp: 2000, Text: "int main() {}"},
		{Kind: KindDelta, Timestamp: 1000, Delta: &Delta{Op: "insert_text", Text: "i"}},
	})
	if got := seq.Changes()[0].Timestamp; got != 1000 {
		t.Fatalf("first timestamp = %d, want 1000", got)
	}

	path := filepath.Join(t.TempDir(), "session.json.zst")
	if err := seq.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if loaded.Len() != 2 || loaded.ExerciseName() != "helloWorld" {
		t.Fatalf("loaded %d changes for %q", loaded.Len(), loaded.ExerciseName())
	}
}
