package service

import (
	"context"
	"fmt"
	"time"

	"github.com/driftchat/drift/internal/repository"
)

type ILastReadService interface {
	MarkRead(ctx context.Context, channelID, userID uint) error
	// Checkout returns the previous cursor value and advances the cursor to
	// now, so the caller can compute an unread count from the returned
	// value. Nil means the user had never read the channel.
	Checkout(ctx context.Context, channelID, userID uint) (*time.Time, error)
}

type LastReadService struct {
	lastReadRepo   repository.ILastReadRepository
	channelService IChannelService
}

func NewLastReadService(lastReadRepo repository.ILastReadRepository, channelService IChannelService) ILastReadService {
	return &LastReadService{
		lastReadRepo:   lastReadRepo,
		channelService: channelService,
	}
}

func (s *LastReadService) MarkRead(ctx context.Context, channelID, userID uint) error {
	if _, err := s.channelService.Resolve(ctx, channelID, userID); err != nil {
		return err
	}
	if err := s.lastReadRepo.Set(ctx, channelID, userID, time.Now()); err != nil {
		return fmt.Errorf("failed to set read cursor: %w", err)
	}
	return nil
}

func (s *LastReadService) Checkout(ctx context.Context, channelID, userID uint) (*time.Time, error) {
	if _, err := s.channelService.Resolve(ctx, channelID, userID); err != nil {
		return nil, err
	}
	prev, err := s.lastReadRepo.Checkout(ctx, channelID, userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to checkout read cursor: %w", err)
	}
	return prev, nil
}
