// Package chunking splits extracted document text into overlapping,
// boundary-aware segments used as retrieval units.
package chunking

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

var ErrInvalidOptions = errors.New("invalid chunking options")

// Options controls segment length and the amount of repeated context
// between consecutive segments. Both are measured in characters (runes).
type Options struct {
	ChunkSize int `json:"chunk_size" toml:"chunk_size"`
	Overlap   int `json:"overlap" toml:"overlap"`
}

func DefaultOptions() Options {
	return Options{ChunkSize: DefaultChunkSize, Overlap: DefaultChunkOverlap}
}

func (o Options) Validate() error {
	if o.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidOptions, o.ChunkSize)
	}
	if o.Overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidOptions, o.Overlap)
	}
	if o.Overlap >= o.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk_size %d", ErrInvalidOptions, o.Overlap, o.ChunkSize)
	}
	return nil
}

// Segment is one chunk candidate. Start and End are rune offsets into the
// source text, End exclusive.
type Segment struct {
	Index  int    `json:"index"`
	Text   string `json:"text"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Length int    `json:"length"`
}

// Split cuts text into windows of opts.ChunkSize runes. A window that ends
// inside the text is pulled back to the last paragraph break, then the last
// sentence end, and only falls back to a hard cut when neither exists. The
// next window starts opts.Overlap runes before the previous window end; a
// window running past the end of the text still advances by the full stride.
func Split(text string, opts Options) ([]Segment, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return []Segment{}, nil
	}

	size, overlap := opts.ChunkSize, opts.Overlap
	if n <= size {
		return []Segment{{Index: 0, Text: text, Start: 0, End: n, Length: n}}, nil
	}
	segments := make([]Segment, 0, n/(size-overlap)+1)

	start := 0
	for start < n {
		end := start + size
		absorbed := false
		if end < n {
			if n-end < overlap {
				// the tail would only repeat the overlap, keep it here
				end = n
				absorbed = true
			} else {
				end = findBreak(runes, start, end, minBreak(start, overlap))
			}
		}

		stop := end
		if stop > n {
			stop = n
		}
		segments = append(segments, Segment{
			Index:  len(segments),
			Text:   string(runes[start:stop]),
			Start:  start,
			End:    stop,
			Length: stop - start,
		})
		if absorbed {
			break
		}

		next := end - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return segments, nil
}

// minBreak is the smallest acceptable break offset for a window starting at
// start. Breaking earlier would make the next window start at or before
// start.
func minBreak(start, overlap int) int {
	return start + overlap + 1
}

func findBreak(runes []rune, start, end, lowest int) int {
	if lowest < start+1 {
		lowest = start + 1
	}
	for i := end - 2; i+2 >= lowest && i >= start; i-- {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			return i + 2
		}
	}
	for i := end - 2; i+1 >= lowest && i >= start; i-- {
		if isSentenceEnd(runes[i]) && unicode.IsSpace(runes[i+1]) {
			return i + 1
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?':
		return true
	}
	return false
}

// Reassemble concatenates segments while dropping the repeated overlap. For
// segments produced by Split it returns the original text.
func Reassemble(segments []Segment) string {
	var b strings.Builder
	covered := 0
	for _, seg := range segments {
		if seg.End <= covered {
			continue
		}
		runes := []rune(seg.Text)
		skip := covered - seg.Start
		if skip < 0 {
			skip = 0
		}
		b.WriteString(string(runes[skip:]))
		covered = seg.End
	}
	return b.String()
}
