// Package usage enforces the monthly per-user query quota.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/ymatsuzawa/nenchobot/internal/models"
)

// DefaultMaxPerMonth is the monthly query allowance per user.
const DefaultMaxPerMonth = 100

// Store reads the aggregate count of answered queries for a user since a
// point in time. The gate does not own this store; every answered query is
// recorded elsewhere as a chat-history row.
type Store interface {
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
}

// Gate is a point-in-time quota check with no atomic reservation: two
// concurrent queries from the same user can both pass before either is
// recorded. That race is accepted; the count catches up on the next check.
type Gate struct {
	Store Store
	Now   func() time.Time
}

// NewGate wires a gate against the given usage store.
func NewGate(store Store) *Gate {
	return &Gate{Store: store, Now: time.Now}
}

// Check reads the user's query count since the first instant of the current
// calendar month (server clock) and compares it to maxPerMonth. Quota
// exhaustion is a decision, not an error; only a failing store read returns
// an error.
func (g *Gate) Check(ctx context.Context, userID string, maxPerMonth int) (models.UsageStatus, error) {
	now := g.Now()
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	count, err := g.Store.CountSince(ctx, userID, startOfMonth)
	if err != nil {
		return models.UsageStatus{}, fmt.Errorf("could not read usage count: %w", err)
	}

	remaining := maxPerMonth - count
	if remaining < 0 {
		remaining = 0
	}

	return models.UsageStatus{
		Allowed:      count < maxPerMonth,
		CurrentCount: count,
		Remaining:    remaining,
		MaxQueries:   maxPerMonth,
	}, nil
}
