package service

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// DefaultSeparators go from paragraph to sentence to word to character.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// TextSplitter splits text recursively on a list of separators so that every
// piece stays within ChunkSize characters, keeping up to ChunkOverlap
// characters of shared context between neighbours.
type TextSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

func NewTextSplitter(chunkSize, chunkOverlap int) *TextSplitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	return &TextSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   DefaultSeparators,
	}
}

func (s *TextSplitter) SplitText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.Separators)
}

func (s *TextSplitter) split(text string, separators []string) []string {
	var final []string

	separator := ""
	var rest []string
	if len(separators) > 0 {
		separator = separators[len(separators)-1]
	}
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var splits []string
	if separator == "" {
		splits = splitRunes(text)
	} else {
		splits = strings.Split(text, separator)
	}

	var good []string
	for _, piece := range splits {
		if piece == "" {
			continue
		}
		if utf8.RuneCountInString(piece) < s.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good, separator)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good, separator)...)
	}
	return final
}

// merge greedily packs small splits into chunks, carrying a tail of the
// previous chunk forward as overlap.
func (s *TextSplitter) merge(splits []string, separator string) []string {
	sepLen := utf8.RuneCountInString(separator)
	joinCost := func(n int) int {
		if n > 0 {
			return sepLen
		}
		return 0
	}

	var docs []string
	var current []string
	total := 0
	for _, d := range splits {
		l := utf8.RuneCountInString(d)
		if total+l+joinCost(len(current)) > s.ChunkSize && len(current) > 0 {
			if doc := joinDocs(current, separator); doc != "" {
				docs = append(docs, doc)
			}
			for len(current) > 0 &&
				(total > s.ChunkOverlap || (total+l+joinCost(len(current)) > s.ChunkSize && total > 0)) {
				total -= utf8.RuneCountInString(current[0]) + joinCost(len(current)-1)
				current = current[1:]
			}
		}
		current = append(current, d)
		total += l + joinCost(len(current)-1)
	}
	if doc := joinDocs(current, separator); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

func joinDocs(docs []string, separator string) string {
	return strings.TrimSpace(strings.Join(docs, separator))
}

func splitRunes(text string) []string {
	out := make([]string, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		out = append(out, string(r))
	}
	return out
}
