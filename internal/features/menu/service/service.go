package service

import (
	"context"

	"vpn-bot-backend/internal/common/logger"
	"vpn-bot-backend/internal/features/menu/repository"
)

// ChatClient is the chat collaborator the menu manager posts through.
type ChatClient interface {
	SendMessage(ctx context.Context, chatID int64, text string, replyMarkup any) (int64, error)
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
}

// MenuService keeps at most a bounded number of navigational messages alive
// per chat, evicting the oldest when the bound is hit.
type MenuService interface {
	Display(ctx context.Context, chatID int64, text string, replyMarkup any) (int64, error)
	Clear(ctx context.Context, chatID int64) error
}

type menuService struct {
	repo  repository.MenuRepository
	chat  ChatClient
	limit int
}

func NewMenuService(repo repository.MenuRepository, chat ChatClient, limit int) MenuService {
	return &menuService{repo: repo, chat: chat, limit: limit}
}

func (s *menuService) Display(ctx context.Context, chatID int64, text string, replyMarkup any) (int64, error) {
	messageID, err := s.chat.SendMessage(ctx, chatID, text, replyMarkup)
	if err != nil {
		return 0, err
	}

	evicted, err := s.repo.Track(ctx, chatID, messageID, s.limit)
	if err != nil {
		// The message is on screen either way; losing track of it only
		// delays its eviction.
		logger.Warn().Err(err).Int64("chat_id", chatID).Msg("menu: track failed")
		return messageID, nil
	}
	for _, id := range evicted {
		// The message may already be gone; deletion failures are swallowed.
		if err := s.chat.DeleteMessage(ctx, chatID, id); err != nil {
			logger.Debug().Err(err).Int64("chat_id", chatID).Int64("message_id", id).Msg("menu: evict delete failed")
		}
	}
	return messageID, nil
}

func (s *menuService) Clear(ctx context.Context, chatID int64) error {
	drained, err := s.repo.Drain(ctx, chatID)
	if err != nil {
		return err
	}
	for _, id := range drained {
		if err := s.chat.DeleteMessage(ctx, chatID, id); err != nil {
			logger.Debug().Err(err).Int64("chat_id", chatID).Int64("message_id", id).Msg("menu: clear delete failed")
		}
	}
	return nil
}
