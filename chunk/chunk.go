// Package chunk splits raw text into overlapping windows of
// whitespace-delimited tokens, the unit of embedding and retrieval.
package chunk

import (
	"errors"
	"strings"
)

var (
	ErrInvalidSize    = errors.New("chunk size must be positive")
	ErrInvalidOverlap = errors.New("chunk overlap must be non-negative and smaller than size")
)

const (
	DefaultSize    = 200
	DefaultOverlap = 50
)

// Splitter produces fixed-size token windows where consecutive windows
// share exactly Overlap tokens. It is stateless and safe for concurrent use.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter validates the window geometry up front. A window overlap
// equal to or larger than the window size would produce non-advancing
// windows, so such configurations are rejected instead of silently
// degenerating.
func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	if overlap < 0 || overlap >= size {
		return nil, ErrInvalidOverlap
	}

	return &Splitter{size: size, overlap: overlap}, nil
}

func (s *Splitter) Size() int    { return s.size }
func (s *Splitter) Overlap() int { return s.overlap }

// Split tokenizes text on whitespace and emits windows of up to Size
// tokens joined by single spaces. Every window except possibly the last
// holds exactly Size tokens; a shorter trailing window is emitted only
// when it covers tokens no earlier window reached. Empty or
// whitespace-only input yields no chunks.
func (s *Splitter) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	stride := s.size - s.overlap

	var chunks []string
	for start := 0; ; start += stride {
		end := start + s.size
		if end > len(words) {
			end = len(words)
		}

		chunks = append(chunks, strings.Join(words[start:end], " "))

		if end == len(words) {
			return chunks
		}
	}
}
