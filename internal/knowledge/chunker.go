package knowledge

import (
	"fmt"
	"strings"
)

// Chunking defaults. The window advances by size-overlap characters, so
// neighbouring chunks share exactly DefaultOverlap characters of text.
const (
	DefaultChunkSize = 800
	DefaultOverlap   = 100

	// ChunksPerPage is the assumed chunk density used to estimate page
	// numbers. An approximation: the text extractor does not report real
	// page boundaries.
	ChunksPerPage = 3
)

// ErrInvalidChunkConfig reports chunker parameters that would produce a
// degenerate or infinite split.
type ErrInvalidChunkConfig struct {
	ChunkSize int
	Overlap   int
}

func (e *ErrInvalidChunkConfig) Error() string {
	return fmt.Sprintf("invalid chunk configuration: chunkSize=%d overlap=%d (need chunkSize > 0 and 0 <= overlap < chunkSize)", e.ChunkSize, e.Overlap)
}

// Chunker splits extracted document text into fixed-size overlapping windows.
// The policy is purely character-count based; it does not respect sentence or
// paragraph boundaries.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker validates the window parameters up front. An overlap equal to or
// larger than the chunk size would make the window stop advancing, so it is
// rejected here rather than looping forever at ingest time.
func NewChunker(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return nil, &ErrInvalidChunkConfig{ChunkSize: chunkSize, Overlap: overlap}
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Split slides a window of chunkSize characters across text, advancing by
// chunkSize-overlap each step. Each window is trimmed of surrounding
// whitespace; windows that are empty after trimming are skipped. Counting is
// per rune so Japanese text is not cut mid-character.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	step := c.chunkSize - c.overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// EstimatePage maps a chunk index to a 1-based page number assuming
// ChunksPerPage chunks per page. Best effort only.
func EstimatePage(chunkIndex int) int {
	return chunkIndex/ChunksPerPage + 1
}
