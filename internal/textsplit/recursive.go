// Package textsplit splits document text into bounded, overlapping chunks.
package textsplit

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/alan-mat/drugrag/internal/api"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

var ErrInvalidOverlap = errors.New("chunk overlap must be smaller than chunk size")

// DefaultSeparators are tried in order, from paragraph breaks down to
// single characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveCharacter splits text on the coarsest separator present and
// recurses into finer separators for pieces that are still too long.
// Lengths are measured in Unicode code points.
type RecursiveCharacter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

func NewRecursiveCharacter(chunkSize, chunkOverlap int) (*RecursiveCharacter, error) {
	if chunkOverlap >= chunkSize {
		return nil, ErrInvalidOverlap
	}
	return &RecursiveCharacter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   DefaultSeparators,
	}, nil
}

// ChunkDocument implements provider.Segmenter.
func (s *RecursiveCharacter) ChunkDocument(ctx context.Context, doc *api.DocumentContent) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Split(doc.Text()), nil
}

// Split returns the chunks of text in document order.
func (s *RecursiveCharacter) Split(text string) []string {
	separators := s.Separators
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	return s.split(text, separators)
}

func (s *RecursiveCharacter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var finer []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			finer = separators[i+1:]
			break
		}
	}

	var chunks []string
	var good []string
	for _, piece := range splitKeepSeparator(text, separator) {
		if length(piece) < s.ChunkSize {
			good = append(good, piece)
			continue
		}

		if len(good) > 0 {
			chunks = append(chunks, s.merge(good)...)
			good = nil
		}

		if len(finer) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, finer)...)
		}
	}

	if len(good) > 0 {
		chunks = append(chunks, s.merge(good)...)
	}
	return chunks
}

// merge joins consecutive pieces into chunks of at most ChunkSize,
// carrying up to ChunkOverlap of trailing pieces into the next chunk.
// Pieces already carry their separator, so they are joined without one.
func (s *RecursiveCharacter) merge(pieces []string) []string {
	var chunks []string
	var current []string
	total := 0

	for _, piece := range pieces {
		n := length(piece)
		if total+n > s.ChunkSize {
			if total > s.ChunkSize {
				slog.Warn("created a chunk longer than the configured size", "length", total, "size", s.ChunkSize)
			}

			if len(current) > 0 {
				if chunk, ok := join(current); ok {
					chunks = append(chunks, chunk)
				}

				for total > s.ChunkOverlap || (total+n > s.ChunkSize && total > 0) {
					total -= length(current[0])
					current = current[1:]
				}
			}
		}

		current = append(current, piece)
		total += n
	}

	if chunk, ok := join(current); ok {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func join(pieces []string) (string, bool) {
	text := strings.TrimSpace(strings.Join(pieces, ""))
	return text, text != ""
}

// splitKeepSeparator splits text on sep, attaching each separator to the
// start of the piece that follows it. An empty sep splits into characters.
func splitKeepSeparator(text, sep string) []string {
	var pieces []string
	if sep == "" {
		pieces = make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	parts := strings.Split(text, sep)
	pieces = make([]string, 0, len(parts))
	if parts[0] != "" {
		pieces = append(pieces, parts[0])
	}
	for _, p := range parts[1:] {
		pieces = append(pieces, sep+p)
	}
	return pieces
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}
