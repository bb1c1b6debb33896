package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/driftchat/drift/internal/model"
)

type IChannelRepository interface {
	FindByID(ctx context.Context, id uint) (*model.Channel, error)
	IsMember(ctx context.Context, channelID, userID uint) (bool, error)
	Counterpart(ctx context.Context, channelID, userID uint) (*model.User, error)
	MemberChannelIDs(ctx context.Context, userID uint) ([]uint, error)
}

type ChannelRepository struct {
	db *gorm.DB
}

func NewChannelRepository(db *gorm.DB) IChannelRepository {
	return &ChannelRepository{db: db}
}

func (r *ChannelRepository) FindByID(ctx context.Context, id uint) (*model.Channel, error) {
	var channel model.Channel
	if err := r.db.WithContext(ctx).First(&channel, id).Error; err != nil {
		return nil, err
	}
	return &channel, nil
}

func (r *ChannelRepository) IsMember(ctx context.Context, channelID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ChannelMember{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Counterpart returns the other participant of a DM channel.
func (r *ChannelRepository) Counterpart(ctx context.Context, channelID, userID uint) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Joins("JOIN channel_members ON channel_members.user_id = users.id").
		Where("channel_members.channel_id = ? AND channel_members.user_id <> ?", channelID, userID).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// MemberChannelIDs lists the channels the user belongs to. Used by the
// websocket gateway to subscribe a client to its rooms.
func (r *ChannelRepository) MemberChannelIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&model.ChannelMember{}).
		Where("user_id = ?", userID).
		Pluck("channel_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
