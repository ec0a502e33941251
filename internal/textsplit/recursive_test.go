package textsplit_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/alan-mat/drugrag/internal/api"
	"github.com/alan-mat/drugrag/internal/textsplit"
)

func newSplitter(t *testing.T) *textsplit.RecursiveCharacter {
	t.Helper()
	s, err := textsplit.NewRecursiveCharacter(textsplit.DefaultChunkSize, textsplit.DefaultChunkOverlap)
	if err != nil {
		t.Fatalf("failed to create splitter: %v", err)
	}
	return s
}

func TestSplitShortDocument(t *testing.T) {
	s := newSplitter(t)
	docs := []string{
		"Acetaminophen should not be combined with alcohol.",
		"코담시럽은 12세 미만 소아에게 투여하지 않습니다.\n\n호흡억제 위험이 있습니다.",
		"line one\nline two\nline three",
	}

	for _, doc := range docs {
		chunks := s.Split(doc)
		if len(chunks) != 1 {
			t.Fatalf("expected 1 chunk for short document, got %d", len(chunks))
		}
		if chunks[0] != doc {
			t.Errorf("expected chunk to equal document content, got '%s'", chunks[0])
		}
	}
}

func TestSplitEmptyDocument(t *testing.T) {
	s := newSplitter(t)
	for _, doc := range []string{"", "   ", " \n\n \n "} {
		if chunks := s.Split(doc); len(chunks) != 0 {
			t.Errorf("expected no chunks for '%q', got %d", doc, len(chunks))
		}
	}
}

func TestSplitWithoutSeparators(t *testing.T) {
	s := newSplitter(t)
	// 2500 code points, no whitespace, multi-byte runes
	text := strings.Repeat("가나다라마바사아자차", 250)

	chunks := s.Split(text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	expectedLens := []int{1000, 1000, 700}
	for i, c := range chunks {
		if got := utf8.RuneCountInString(c); got != expectedLens[i] {
			t.Errorf("chunk %d: expected length %d, got %d", i, expectedLens[i], got)
		}
	}

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		next := []rune(chunks[i])
		overlap := string(next[:textsplit.DefaultChunkOverlap])
		if !strings.HasSuffix(string(prev), overlap) {
			t.Errorf("chunks %d and %d do not share %d characters", i-1, i, textsplit.DefaultChunkOverlap)
		}
	}
}

func TestSplitWordsBoundedWithOverlap(t *testing.T) {
	s := newSplitter(t)
	words := make([]string, 0, 500)
	for i := range 500 {
		words = append(words, fmt.Sprintf("w%04d", i))
	}
	text := strings.Join(words, " ")

	chunks := s.Split(text)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > textsplit.DefaultChunkSize {
			t.Errorf("chunk %d exceeds chunk size: %d", i, n)
		}
		if c != strings.TrimSpace(c) {
			t.Errorf("chunk %d is not trimmed", i)
		}
	}

	// 16 words of "wNNNN " fit in the 100 character overlap
	for i := 1; i < len(chunks); i++ {
		if n := sharedOverlap(chunks[i-1], chunks[i]); n < 89 {
			t.Errorf("chunks %d and %d share %d characters, expected at least 89", i-1, i, n)
		}
	}

	// every word survives splitting
	joined := strings.Join(chunks, " ")
	for _, w := range words {
		if !strings.Contains(joined, w) {
			t.Fatalf("word '%s' lost during splitting", w)
		}
	}
}

// sharedOverlap returns the length of the longest prefix of next that is
// also a suffix of prev.
func sharedOverlap(prev, next string) int {
	for n := min(len(prev), len(next)); n > 0; n-- {
		if strings.HasSuffix(prev, next[:n]) {
			return n
		}
	}
	return 0
}

func TestSplitParagraphs(t *testing.T) {
	s := newSplitter(t)
	paragraphs := make([]string, 0, 3)
	for i := range 3 {
		paragraphs = append(paragraphs, strings.TrimSpace(strings.Repeat(fmt.Sprintf("p%d ", i), 200)))
	}
	text := strings.Join(paragraphs, "\n\n")

	chunks := s.Split(text)
	if len(chunks) != len(paragraphs) {
		t.Fatalf("expected %d chunks, got %d", len(paragraphs), len(chunks))
	}
	for i, c := range chunks {
		if c != paragraphs[i] {
			t.Errorf("chunk %d does not match paragraph %d", i, i)
		}
	}
}

func TestSplitFallsBackToFinerSeparators(t *testing.T) {
	s := newSplitter(t)
	long := strings.TrimSpace(strings.Repeat("valsartan hydrochlorothiazide ", 80))
	text := "Header paragraph.\n\n" + long + "\n\nFooter paragraph."

	chunks := s.Split(text)
	if len(chunks) < 3 {
		t.Fatalf("expected the long paragraph to be split, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > textsplit.DefaultChunkSize {
			t.Errorf("chunk %d exceeds chunk size: %d", i, n)
		}
	}
	if chunks[0] != "Header paragraph." {
		t.Errorf("expected first chunk to be the header paragraph, got '%s'", chunks[0])
	}
	if chunks[len(chunks)-1] != "Footer paragraph." {
		t.Errorf("expected last chunk to be the footer paragraph, got '%s'", chunks[len(chunks)-1])
	}
}

func TestChunkDocument(t *testing.T) {
	s := newSplitter(t)
	doc := api.TextDocument("docs.csv#0", "짧은 문서입니다.")

	chunks, err := s.ChunkDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "짧은 문서입니다." {
		t.Errorf("unexpected chunks %v", chunks)
	}
}

func TestNewRecursiveCharacterInvalid(t *testing.T) {
	_, err := textsplit.NewRecursiveCharacter(100, 100)
	if !errors.Is(err, textsplit.ErrInvalidOverlap) {
		t.Errorf("expected ErrInvalidOverlap, got %v", err)
	}
}
