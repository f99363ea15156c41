package db

import (
	"context"
	"time"

	"github.com/ymatsuzawa/nenchobot/internal/models"
)

// HistoryStore persists answered queries and serves the aggregate reads built
// on them: the usage gate's monthly count, per-user usage stats, and the
// recent-question feed for the admin surface.
type HistoryStore interface {
	SaveChat(ctx context.Context, record models.ChatRecord) error
	GetHistory(ctx context.Context, userID string, limit int) ([]models.ChatRecord, error)
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
	UsageStats(ctx context.Context, since time.Time) ([]models.UserUsage, error)
	RecentQuestions(ctx context.Context, limit int) ([]models.ChatRecord, error)
}
