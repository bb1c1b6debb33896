package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/driftchat/drift/internal/model"
	"github.com/driftchat/drift/internal/repository"
)

// ChannelInfo is what the permission resolver hands back to callers:
// the channel metadata plus, for DMs, the other participant.
type ChannelInfo struct {
	Channel     *model.Channel
	Counterpart *model.User
}

// IChannelService resolves a channel for an acting user. Side-effect-free;
// every read and send runs through it.
type IChannelService interface {
	Resolve(ctx context.Context, channelID, userID uint) (*ChannelInfo, error)
}

type ChannelService struct {
	channelRepo repository.IChannelRepository
}

func NewChannelService(channelRepo repository.IChannelRepository) IChannelService {
	return &ChannelService{channelRepo: channelRepo}
}

// Resolve returns the channel and counterpart info, ErrChannelNotFound when
// the channel does not exist and ErrNotMember when the user may not act on
// it.
func (s *ChannelService) Resolve(ctx context.Context, channelID, userID uint) (*ChannelInfo, error) {
	channel, err := s.channelRepo.FindByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, fmt.Errorf("failed to load channel: %w", err)
	}

	isMember, err := s.channelRepo.IsMember(ctx, channelID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check channel membership: %w", err)
	}
	if !isMember {
		return nil, ErrNotMember
	}

	info := &ChannelInfo{Channel: channel}
	if channel.IsDM() {
		counterpart, err := s.channelRepo.Counterpart(ctx, channelID, userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load dm counterpart: %w", err)
		}
		info.Counterpart = counterpart
	}
	return info, nil
}
