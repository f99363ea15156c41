package db

import (
	"context"

	"github.com/ymatsuzawa/nenchobot/internal/knowledge"
	"github.com/ymatsuzawa/nenchobot/internal/models"
)

var (
	_ knowledge.SearchStore    = NoopSearchStore{}
	_ knowledge.DocumentLister = NoopSearchStore{}
)

// NoopSearchStore stands in for the knowledge base when no Postgres is
// configured. Every call reports the search as unavailable, which the
// retriever collapses to empty results: the bot keeps answering, just
// without augmentation.
type NoopSearchStore struct{}

func (NoopSearchStore) SimilaritySearch(ctx context.Context, queryVector []float32, threshold float64, limit int) ([]models.RetrievalResult, error) {
	return nil, knowledge.ErrSearchUnavailable
}

func (NoopSearchStore) ListDocuments(ctx context.Context) ([]knowledge.DocumentStats, error) {
	return nil, knowledge.ErrSearchUnavailable
}
