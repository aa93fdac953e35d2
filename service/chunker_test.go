package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/pdfchat-be/types"
	"github.com/tieubaoca/pdfchat-be/utils"
)

func collect(c *Chunker, pages ...types.Page) []types.Chunk {
	var out []types.Chunk
	for chunk := range c.ChunkPages(pages) {
		out = append(out, chunk)
	}
	return out
}

func TestChunkerStripsNewlinesAndKeepsPage(t *testing.T) {
	c := NewChunker(nil, 0)
	chunks := collect(c, types.Page{Number: 4, Text: "Vacation policy:\nEmployees accrue 1.5\r\n days per month."})

	require.Len(t, chunks, 1)
	chunk := chunks[0]
	assert.Equal(t, "Vacation policy:Employees accrue 1.5 days per month.", chunk.Text)
	assert.Equal(t, 4, chunk.PageNumber)
	assert.Equal(t, chunk.Text, chunk.PageText)
	assert.Equal(t, utils.ContentHash(chunk.Text), chunk.ID)
}

func TestChunkerBlankPageYieldsNothing(t *testing.T) {
	c := NewChunker(nil, 0)
	assert.Empty(t, collect(c, types.Page{Number: 1, Text: "\n\n  \n"}))
	assert.Empty(t, collect(c, types.Page{Number: 2}))
}

func TestChunkerTruncatesPageTextOnByteBoundary(t *testing.T) {
	c := NewChunker(NewTextSplitter(1000, 200), 100)
	page := types.Page{Number: 1, Text: strings.Repeat("ß", 300)}

	chunks := collect(c, page)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.PageText), 100)
		assert.True(t, utf8.ValidString(chunk.PageText))
	}
}

func TestChunkerSequenceIsRestartable(t *testing.T) {
	c := NewChunker(NewTextSplitter(50, 10), 0)
	seq := c.Chunks(types.Page{Number: 2, Text: numberedWords(60)})

	var first, second []string
	for chunk := range seq {
		first = append(first, chunk.ID)
	}
	for chunk := range seq {
		second = append(second, chunk.ID)
	}
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestChunkerStopsEarly(t *testing.T) {
	c := NewChunker(NewTextSplitter(50, 10), 0)
	pages := []types.Page{
		{Number: 1, Text: numberedWords(60)},
		{Number: 2, Text: numberedWords(60)},
	}
	count := 0
	for range c.ChunkPages(pages) {
		count++
		if count == 3 {
			break
		}
	}
	assert.Equal(t, 3, count)
}

func TestChunkPagesPreservesPageOrder(t *testing.T) {
	c := NewChunker(nil, 0)
	chunks := collect(c,
		types.Page{Number: 1, Text: "Welcome to the company."},
		types.Page{Number: 2, Text: "Working hours are nine to five."},
		types.Page{Number: 3, Text: "Benefits include health insurance."},
	)
	require.Len(t, chunks, 3)
	for i, chunk := range chunks {
		assert.Equal(t, i+1, chunk.PageNumber)
	}
}
