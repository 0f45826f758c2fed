package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	errs "vpn-bot-backend/internal/common/errors"
)

const (
	keyPrefixMenus = "menus:"
	// Optimistic transaction retries before giving up.
	maxTxRetries = 5
)

type redisRepository struct {
	client *redis.Client
}

func NewRedisMenuRepository(client *redis.Client) MenuRepository {
	return &redisRepository{client: client}
}

func makeMenuKey(chatID int64) string {
	return keyPrefixMenus + strconv.FormatInt(chatID, 10)
}

func (r *redisRepository) Track(ctx context.Context, chatID, messageID int64, limit int) ([]int64, error) {
	if limit < 1 {
		limit = 1
	}
	key := makeMenuKey(chatID)

	var evicted []int64
	// WATCH makes the append-and-trim conditional on the list not changing
	// underneath us; concurrent handlers for the same chat retry.
	txn := func(tx *redis.Tx) error {
		current, err := tx.LRange(ctx, key, 0, -1).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		ids := parseIDs(current)
		ids = append(ids, messageID)

		evicted = nil
		for len(ids) > limit {
			evicted = append(evicted, ids[0])
			ids = ids[1:]
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.RPush(ctx, key, toArgs(ids)...)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txn, key)
		if err == nil {
			return evicted, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, errs.StoreUnavailable("track menu message", err)
	}
	return nil, errs.StoreUnavailable("track menu message",
		fmt.Errorf("transaction contention on chat %d", chatID))
}

func (r *redisRepository) Drain(ctx context.Context, chatID int64) ([]int64, error) {
	key := makeMenuKey(chatID)

	var drained []int64
	txn := func(tx *redis.Tx) error {
		current, err := tx.LRange(ctx, key, 0, -1).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		drained = parseIDs(current)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txn, key)
		if err == nil {
			return drained, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, errs.StoreUnavailable("drain menu messages", err)
	}
	return nil, errs.StoreUnavailable("drain menu messages",
		fmt.Errorf("transaction contention on chat %d", chatID))
}

func parseIDs(raw []string) []int64 {
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func toArgs(ids []int64) []any {
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, strconv.FormatInt(id, 10))
	}
	return args
}
