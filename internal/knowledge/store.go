package knowledge

import (
	"context"
	"errors"

	"github.com/ymatsuzawa/nenchobot/internal/models"
)

// ErrSearchUnavailable is reported by stores whose similarity operation is
// not provisioned (missing extension, table or search function). It is a
// distinguishable condition, not a generic failure, so the retriever can fall
// back to empty results and ingestion can report it plainly.
var ErrSearchUnavailable = errors.New("similarity search is not available")

// SearchStore is the read side of the knowledge base: cosine similarity
// search over stored chunk embeddings. Implementations return rows ordered by
// descending similarity, keep only rows at or above threshold, and return at
// most limit rows. A backend whose similarity operation is not provisioned
// reports ErrSearchUnavailable rather than an opaque failure so the
// retriever can degrade to empty results.
type SearchStore interface {
	SimilaritySearch(ctx context.Context, queryVector []float32, threshold float64, limit int) ([]models.RetrievalResult, error)
}

// ChunkStore is the write side used by the ingestion pipeline.
type ChunkStore interface {
	UpsertChunk(ctx context.Context, doc models.Document, chunk models.Chunk) error
	DeleteByDocumentName(ctx context.Context, name string) (int, error)
}

// DocumentLister reports what is in the knowledge base.
type DocumentLister interface {
	ListDocuments(ctx context.Context) ([]DocumentStats, error)
}

// DocumentStats pairs a document with its stored chunk count.
type DocumentStats struct {
	Document   models.Document `json:"document"`
	ChunkCount int             `json:"chunk_count"`
}
