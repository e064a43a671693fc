// Package editseq exposes recorded edit sequences: the changes one student
// made to one exercise, with their timestamps.
package editseq

import (
	"io"

	internaleditseq "github.com/SmitUplenchwar2687/editplay/internal/editseq"
)

// EditSequence is an immutable, timestamp-ordered recording.
type EditSequence = internaleditseq.EditSequence

// Change is one recorded editor event.
type Change = internaleditseq.Change

// Delta is the payload of an incremental edit.
type Delta = internaleditseq.Delta

// Kind distinguishes incremental edits from full-text replacements.
type Kind = internaleditseq.Kind

const (
	KindDelta    = internaleditseq.KindDelta
	KindFullText = internaleditseq.KindFullText
)

// New builds a sequence for exercise, ordering changes by timestamp.
func New(exercise string, changes []Change) *EditSequence {
	return internaleditseq.New(exercise, changes)
}

// Load reads a JSON recording.
func Load(r io.Reader) (*EditSequence, error) {
	return internaleditseq.Load(r)
}

// LoadFile reads a recording from path. Files ending in .zst are
// decompressed.
func LoadFile(path string) (*EditSequence, error) {
	return internaleditseq.LoadFile(path)
}
