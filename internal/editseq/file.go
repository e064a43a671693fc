package editseq

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// document is the on-disk representation of a sequence.
type document struct {
	Exercise string   `json:"exercise"`
	Changes  []Change `json:"changes"`
}

// Load reads a JSON-encoded sequence.
func Load(r io.Reader) (*EditSequence, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding edit sequence: %w", err)
	}
	if doc.Exercise == "" {
		return nil, fmt.Errorf("edit sequence has no exercise name")
	}
	return New(doc.Exercise, doc.Changes), nil
}

// Write encodes s as indented JSON.
func (s *EditSequence) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(document{Exercise: s.exercise, Changes: s.changes})
}

// LoadFile reads a sequence from path. Files ending in ".zst" are
// zstd-compressed.
func LoadFile(path string) (*EditSequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening edit sequence: %w", err)
	}
	defer f.Close()

	if !isCompressed(path) {
		return Load(f)
	}

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("opening zstd stream: %w", err)
	}
	defer dec.Close()
	return Load(dec)
}

// WriteFile writes s to path, compressing when path ends in ".zst".
func (s *EditSequence) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if !isCompressed(path) {
		return s.Write(f)
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	if err := s.Write(enc); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func isCompressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}
