// Package generate builds synthetic edit recordings and stub webapp
// catalogs for trying out playback without a real capture.
package generate

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/SmitUplenchwar2687/editplay/internal/editseq"
)

const (
	// PatternSteady spaces edits evenly.
	PatternSteady = "steady"
	// PatternBurst clusters edits into bursts with quiet gaps.
	PatternBurst = "burst"
	// PatternRamp makes typing speed up over time.
	PatternRamp = "ramp"
)

// DefaultExercise is the exercise name used when Options.Exercise is empty.
const DefaultExercise = "sumOfThree"

// DefaultSource is the program "typed" when Options.Source is empty.
const DefaultSource = `#include <stdio.h>

int sumOfThree(int a, int b, int c) {
    return a + b + c;
}

int main(void) {
    printf("%d\n", sumOfThree(1, 2, 3));
    return 0;
}
`

// Options controls how a synthetic recording is generated.
type Options struct {
	Exercise    string
	Source      string
	Edits       int
	Submissions int
	Duration    time.Duration
	Pattern     string
	Start       int64 // epoch milliseconds of the first edit
	Seed        int64
}

// DefaultOptions returns the defaults used by the CLI.
func DefaultOptions() Options {
	return Options{
		Exercise:    DefaultExercise,
		Source:      DefaultSource,
		Edits:       60,
		Submissions: 2,
		Duration:    2 * time.Minute,
		Pattern:     PatternSteady,
	}
}

// Sequence types Source out in Edits insert deltas spread over Duration
// and adds Submissions full-text changes at evenly spaced points, each
// carrying the text typed so far. The last submission lands at the end and
// holds the whole source.
func Sequence(opts Options) (*editseq.EditSequence, error) {
	if opts.Exercise == "" {
		opts.Exercise = DefaultExercise
	}
	if opts.Source == "" {
		opts.Source = DefaultSource
	}
	if opts.Pattern == "" {
		opts.Pattern = PatternSteady
	}
	if opts.Start == 0 {
		opts.Start = time.Now().Truncate(time.Second).UnixMilli()
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}

	source := []rune(opts.Source)
	if opts.Edits <= 0 {
		return nil, fmt.Errorf("edits must be positive, got %d", opts.Edits)
	}
	if opts.Edits > len(source) {
		return nil, fmt.Errorf("edits (%d) must not exceed the source length (%d)", opts.Edits, len(source))
	}
	if opts.Submissions < 0 {
		return nil, fmt.Errorf("submissions must not be negative, got %d", opts.Submissions)
	}
	durMS := opts.Duration.Milliseconds()
	if durMS <= 0 {
		return nil, fmt.Errorf("duration must be at least 1ms, got %s", opts.Duration)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	var offsets []int64
	switch opts.Pattern {
	case PatternBurst:
		offsets = burstOffsets(rng, opts.Edits, durMS)
	case PatternRamp:
		offsets = rampOffsets(opts.Edits, durMS)
	case PatternSteady:
		offsets = steadyOffsets(opts.Edits, durMS)
	default:
		return nil, fmt.Errorf("unknown pattern %q, must be one of: steady, burst, ramp", opts.Pattern)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	chunks := split(source, opts.Edits)
	changes := make([]editseq.Change, 0, opts.Edits+opts.Submissions)

	// typedAt[i] is the buffer after edit i.
	typedAt := make([]string, opts.Edits)
	var typed []rune
	row, col := 0, 0
	for i, chunk := range chunks {
		endRow, endCol := advance(row, col, chunk)
		changes = append(changes, editseq.Change{
			Kind:      editseq.KindDelta,
			Timestamp: opts.Start + offsets[i],
			Delta: &editseq.Delta{
				Op:       "insert_text",
				StartRow: row,
				StartCol: col,
				EndRow:   endRow,
				EndCol:   endCol,
				Text:     string(chunk),
			},
		})
		typed = append(typed, chunk...)
		typedAt[i] = string(typed)
		row, col = endRow, endCol
	}

	for k := 1; k <= opts.Submissions; k++ {
		at := durMS * int64(k) / int64(opts.Submissions)
		// The buffer as of the last edit at or before the submission.
		n := sort.Search(len(offsets), func(i int) bool { return offsets[i] > at })
		text := ""
		if n > 0 {
			text = typedAt[n-1]
		}
		changes = append(changes, editseq.Change{
			Kind:      editseq.KindFullText,
			Timestamp: opts.Start + at,
			Text:      text,
		})
	}

	return editseq.New(opts.Exercise, changes), nil
}

// split cuts src into n contiguous, non-empty pieces of near-equal size.
func split(src []rune, n int) [][]rune {
	pieces := make([][]rune, n)
	size, extra := len(src)/n, len(src)%n
	pos := 0
	for i := range pieces {
		l := size
		if i < extra {
			l++
		}
		pieces[i] = src[pos : pos+l]
		pos += l
	}
	return pieces
}

// advance returns the cursor position after inserting text at row, col.
func advance(row, col int, text []rune) (int, int) {
	for _, r := range text {
		if r == '\n' {
			row++
			col = 0
		} else {
			col++
		}
	}
	return row, col
}

func steadyOffsets(count int, dur int64) []int64 {
	offsets := make([]int64, count)
	for i := range offsets {
		offsets[i] = int64(i) * dur / int64(count)
	}
	return offsets
}

func burstOffsets(rng *rand.Rand, count int, dur int64) []int64 {
	const numBursts = 4
	offsets := make([]int64, 0, count)
	burstSize := count / numBursts
	burstGap := dur / numBursts
	spread := min(int64(1000), max(burstGap, 1))

	for b := int64(0); b < numBursts; b++ {
		for i := 0; i < burstSize; i++ {
			offsets = append(offsets, b*burstGap+rng.Int63n(spread))
		}
	}
	for len(offsets) < count {
		offsets = append(offsets, rng.Int63n(dur))
	}
	return offsets
}

func rampOffsets(count int, dur int64) []int64 {
	offsets := make([]int64, count)
	for i := range offsets {
		// Gaps shrink as i grows: the typist warms up.
		frac := float64(i) / float64(count)
		offsets[i] = int64((2*frac - frac*frac) * float64(dur))
	}
	return offsets
}
