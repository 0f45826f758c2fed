package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// awaitTTL bounds how long the bot waits for a free-text reply before the
// prompt silently expires.
const awaitTTL = 10 * time.Minute

// awaitKind tags what free-text input the next message in a chat answers.
type awaitKind string

const (
	awaitNone     awaitKind = ""
	awaitTopUp    awaitKind = "topup"
	awaitRename   awaitKind = "rename"
	awaitEmoji    awaitKind = "emoji"
	awaitAnnounce awaitKind = "announce"
)

type awaitState struct {
	Kind   awaitKind
	UserID int64
}

// awaitStore keeps the per-chat "waiting for input" marker in Redis so a bot
// restart does not strand a prompt forever.
type awaitStore struct {
	client *redis.Client
}

func newAwaitStore(client *redis.Client) *awaitStore {
	return &awaitStore{client: client}
}

func awaitKeyFor(chatID int64) string {
	return "await:" + strconv.FormatInt(chatID, 10)
}

func (s *awaitStore) Set(ctx context.Context, chatID int64, state awaitState) error {
	value := string(state.Kind)
	if state.UserID != 0 {
		value += ":" + strconv.FormatInt(state.UserID, 10)
	}
	return s.client.Set(ctx, awaitKeyFor(chatID), value, awaitTTL).Err()
}

// Take reads and clears the marker in one step so a reply is consumed once.
func (s *awaitStore) Take(ctx context.Context, chatID int64) (awaitState, error) {
	value, err := s.client.GetDel(ctx, awaitKeyFor(chatID)).Result()
	if errors.Is(err, redis.Nil) {
		return awaitState{Kind: awaitNone}, nil
	}
	if err != nil {
		return awaitState{}, err
	}
	kind, arg, _ := strings.Cut(value, ":")
	state := awaitState{Kind: awaitKind(kind)}
	if arg != "" {
		if userID, err := strconv.ParseInt(arg, 10, 64); err == nil {
			state.UserID = userID
		}
	}
	return state, nil
}

func (s *awaitStore) Clear(ctx context.Context, chatID int64) error {
	return s.client.Del(ctx, awaitKeyFor(chatID)).Err()
}
