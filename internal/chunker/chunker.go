// Package chunker splits raw document text into overlapping fixed-size chunks.
package chunker

import (
	"strings"

	"github.com/stackmint/docqa/internal/domain"
)

// Default chunking parameters.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// separators is the boundary cascade: paragraph, line, word, hard character cut.
var separators = []string{"\n\n", "\n", " ", ""}

// Splitter produces overlapping chunks of at most chunkSize characters,
// preferring semantic boundaries over hard cuts. Splitting is deterministic:
// the same text always yields the same chunk sequence.
type Splitter struct {
	chunkSize int
	overlap   int
}

// New creates a splitter. Non-positive arguments fall back to defaults.
func New(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultOverlap
		if overlap >= chunkSize {
			overlap = chunkSize / 5
		}
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split breaks text into overlapping chunks. Input no longer than the chunk
// size is returned as a single chunk equal to the input.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		return []string{text}
	}
	return s.split(text, separators)
}

// SplitUnits chunks every loader unit and tags each chunk with the owning
// document id, carrying the unit metadata along for filtering.
func (s *Splitter) SplitUnits(units []domain.Unit, docID int64) []domain.Chunk {
	var chunks []domain.Chunk
	for _, u := range units {
		for _, text := range s.Split(u.Text) {
			md := make(map[string]string, len(u.Metadata))
			for k, v := range u.Metadata {
				md[k] = v
			}
			chunks = append(chunks, domain.Chunk{
				Text:       text,
				DocumentID: docID,
				Metadata:   md,
			})
		}
	}
	return chunks
}

// split recursively breaks text at the first separator present, descending the
// cascade for pieces that are still too large, then merges pieces back into
// overlapping windows.
func (s *Splitter) split(text string, seps []string) []string {
	sep, rest := pickSeparator(text, seps)
	if sep == "" {
		return s.hardCut(text)
	}

	parts := strings.Split(text, sep)
	var pieces []string
	for _, p := range parts {
		if p == "" {
			continue
		}
		if len(p) <= s.chunkSize {
			pieces = append(pieces, p)
			continue
		}
		pieces = append(pieces, s.split(p, rest)...)
	}
	return s.merge(pieces, sep)
}

// pickSeparator returns the first separator occurring in text and the
// remaining cascade below it.
func pickSeparator(text string, seps []string) (string, []string) {
	for i, sep := range seps {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, seps[i+1:]
		}
	}
	return "", nil
}

// merge greedily packs pieces into chunks of at most chunkSize characters,
// carrying the last pieces over into the next chunk until the carried length
// drops to the overlap budget.
func (s *Splitter) merge(pieces []string, sep string) []string {
	var (
		chunks []string
		window []string
		total  int
	)

	joinedLen := func(n, length int) int {
		if n == 0 {
			return length
		}
		return length + len(sep)
	}

	for _, p := range pieces {
		if total+joinedLen(len(window), len(p)) > s.chunkSize && len(window) > 0 {
			if c := strings.TrimSpace(strings.Join(window, sep)); c != "" {
				chunks = append(chunks, c)
			}
			// Drop from the front until the carried tail fits the overlap
			// budget and leaves room for the next piece.
			for len(window) > 0 &&
				(total > s.overlap || total+joinedLen(len(window), len(p)) > s.chunkSize) {
				total -= joinedLen(len(window)-1, len(window[0]))
				window = window[1:]
			}
		}
		total += joinedLen(len(window), len(p))
		window = append(window, p)
	}

	if c := strings.TrimSpace(strings.Join(window, sep)); c != "" {
		chunks = append(chunks, c)
	}
	return chunks
}

// hardCut slices text into fixed windows with the configured overlap. Last
// resort when no semantic boundary exists within a piece.
func (s *Splitter) hardCut(text string) []string {
	step := s.chunkSize - s.overlap
	var chunks []string
	for start := 0; start < len(text); start += step {
		end := start + s.chunkSize
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		chunks = append(chunks, text[start:end])
	}
	return chunks
}
