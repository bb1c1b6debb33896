package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/driftchat/drift/internal/model"
)

type ILastReadRepository interface {
	Get(ctx context.Context, channelID, userID uint) (*time.Time, error)
	Set(ctx context.Context, channelID, userID uint, ts time.Time) error
	// Checkout returns the cursor value that existed before the call and
	// atomically advances it to now. A nil previous value means the user
	// had no cursor for the channel yet.
	Checkout(ctx context.Context, channelID, userID uint, now time.Time) (*time.Time, error)
}

type LastReadRepository struct {
	db *gorm.DB
}

func NewLastReadRepository(db *gorm.DB) ILastReadRepository {
	return &LastReadRepository{db: db}
}

func (r *LastReadRepository) Get(ctx context.Context, channelID, userID uint) (*time.Time, error) {
	var row model.LastRead
	err := r.db.WithContext(ctx).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row.ReadAt, nil
}

// Set upserts the cursor, last-writer-wins.
func (r *LastReadRepository) Set(ctx context.Context, channelID, userID uint, ts time.Time) error {
	row := model.LastRead{ChannelID: channelID, UserID: userID, ReadAt: ts}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{"read_at": ts}),
	}).Create(&row).Error
}

func (r *LastReadRepository) Checkout(ctx context.Context, channelID, userID uint, now time.Time) (*time.Time, error) {
	var prev *time.Time
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row model.LastRead
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("channel_id = ? AND user_id = ?", channelID, userID).
			First(&row).Error
		switch {
		case err == nil:
			readAt := row.ReadAt
			prev = &readAt
		case errors.Is(err, gorm.ErrRecordNotFound):
			// First checkout for this (channel, user); created below.
		default:
			return err
		}

		next := model.LastRead{ChannelID: channelID, UserID: userID, ReadAt: now}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "channel_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{"read_at": now}),
		}).Create(&next).Error
	})
	if err != nil {
		return nil, err
	}
	return prev, nil
}
