package service

import (
	"iter"
	"strings"

	"github.com/tieubaoca/pdfchat-be/types"
	"github.com/tieubaoca/pdfchat-be/utils"
)

const DefaultMaxMetadataBytes = 36000

var lineBreakStripper = strings.NewReplacer("\r", "", "\n", "")

// Chunker turns page text into chunks carrying page provenance.
type Chunker struct {
	splitter         *TextSplitter
	maxMetadataBytes int
}

func NewChunker(splitter *TextSplitter, maxMetadataBytes int) *Chunker {
	if splitter == nil {
		splitter = NewTextSplitter(DefaultChunkSize, DefaultChunkOverlap)
	}
	if maxMetadataBytes <= 0 {
		maxMetadataBytes = DefaultMaxMetadataBytes
	}
	return &Chunker{splitter: splitter, maxMetadataBytes: maxMetadataBytes}
}

// Chunks yields the chunks of one page. The split runs again on every range.
func (c *Chunker) Chunks(page types.Page) iter.Seq[types.Chunk] {
	return func(yield func(types.Chunk) bool) {
		text := lineBreakStripper.Replace(page.Text)
		if strings.TrimSpace(text) == "" {
			return
		}
		pageText := utils.TruncateBytes(text, c.maxMetadataBytes)
		for _, segment := range c.splitter.SplitText(text) {
			chunk := types.Chunk{
				ID:         utils.ContentHash(segment),
				Text:       segment,
				PageNumber: page.Number,
				PageText:   pageText,
			}
			if !yield(chunk) {
				return
			}
		}
	}
}

// ChunkPages chains the chunks of pages in page order.
func (c *Chunker) ChunkPages(pages []types.Page) iter.Seq[types.Chunk] {
	return func(yield func(types.Chunk) bool) {
		for _, page := range pages {
			for chunk := range c.Chunks(page) {
				if !yield(chunk) {
					return
				}
			}
		}
	}
}
