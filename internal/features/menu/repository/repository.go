package repository

import "context"

// MenuRepository tracks the navigational messages currently visible in a
// chat. The tracked set is bounded; ordering only matters for picking the
// eviction victim (oldest first).
type MenuRepository interface {
	// Track records messageID for the chat and returns the ids evicted to
	// keep the tracked set within limit.
	Track(ctx context.Context, chatID, messageID int64, limit int) ([]int64, error)

	// Drain empties the tracked set and returns everything it held.
	Drain(ctx context.Context, chatID int64) ([]int64, error)
}
