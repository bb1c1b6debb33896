package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/driftchat/drift/internal/model"
)

// CursorDirection selects which side of the cursor a history page covers.
type CursorDirection string

const (
	CursorBefore CursorDirection = "before"
	CursorAfter  CursorDirection = "after"
)

type IMessageRepository interface {
	// CreateWithChannelUpdate runs the whole send write path in one
	// transaction: persist the attachment (if any), insert the message,
	// re-read it hydrated, advance the channel's last-message pointer and
	// conditionally flip the DM open flag. The returned bool reports
	// whether this call caused the DM-open transition.
	CreateWithChannelUpdate(ctx context.Context, msg *model.Message, att *model.Attachment) (*model.MessageView, bool, error)
	FindPage(ctx context.Context, channelID uint, limit int, dir CursorDirection, cursor *time.Time) ([]*model.MessageView, error)
	UpdateContent(ctx context.Context, messageID int64, channelID, authorID uint, content string) (int64, error)
	FindByID(ctx context.Context, id int64) (*model.Message, error)
	Delete(ctx context.Context, id int64) error
}

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) IMessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) CreateWithChannelUpdate(ctx context.Context, msg *model.Message, att *model.Attachment) (*model.MessageView, bool, error) {
	var view *model.MessageView
	var dmOpened bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if att != nil {
			if err := tx.Create(att).Error; err != nil {
				return err
			}
			msg.AttachmentID = &att.ID
		}

		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		views, err := hydrate(tx, []int64{msg.ID})
		if err != nil {
			return err
		}
		if len(views) != 1 {
			return gorm.ErrRecordNotFound
		}
		view = views[0]

		err = tx.Model(&model.Channel{}).
			Where("id = ?", msg.ChannelID).
			Update("last_message_id", msg.ID).Error
		if err != nil {
			return err
		}

		// Conditional update so that under concurrent senders exactly one
		// transaction observes RowsAffected == 1 for the open flip.
		res := tx.Model(&model.Channel{}).
			Where("id = ? AND kind = ? AND opened = ?", msg.ChannelID, model.ChannelKindDM, false).
			Update("opened", true)
		if res.Error != nil {
			return res.Error
		}
		dmOpened = res.RowsAffected == 1

		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return view, dmOpened, nil
}

func (r *MessageRepository) FindPage(ctx context.Context, channelID uint, limit int, dir CursorDirection, cursor *time.Time) ([]*model.MessageView, error) {
	query := r.db.WithContext(ctx).Model(&model.Message{}).Where("channel_id = ?", channelID)
	if cursor != nil {
		if dir == CursorAfter {
			query = query.Where("created_at > ?", *cursor)
		} else {
			query = query.Where("created_at < ?", *cursor)
		}
	}

	var ids []int64
	err := query.Order("created_at DESC").Limit(limit).Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return hydrate(r.db.WithContext(ctx), ids)
}

// UpdateContent updates at most one row matched by (id, channel, author) and
// reports how many rows changed. A zero count covers both "not found" and
// "not the author"; callers deliberately do not learn which.
func (r *MessageRepository) UpdateContent(ctx context.Context, messageID int64, channelID, authorID uint, content string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND channel_id = ? AND author_id = ?", messageID, channelID, authorID).
		Update("content", content)
	return res.RowsAffected, res.Error
}

func (r *MessageRepository) FindByID(ctx context.Context, id int64) (*model.Message, error) {
	var message model.Message
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// Delete hard-deletes the row. The channel's last-message pointer is left
// as-is even when it references the deleted message; readers treat the
// pointer as a hint.
func (r *MessageRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Message{}, id).Error
}

// hydrate loads the given messages with author, attachment and reply
// snapshot, preserving the order of ids. Parents that no longer exist leave
// the snapshot fields nil (left-join semantics, never an error).
func hydrate(db *gorm.DB, ids []int64) ([]*model.MessageView, error) {
	if len(ids) == 0 {
		return []*model.MessageView{}, nil
	}

	var messages []*model.Message
	err := db.Preload("Author").Preload("Attachment").
		Where("id IN ?", ids).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*model.Message, len(messages))
	var parentIDs []int64
	for _, m := range messages {
		byID[m.ID] = m
		if m.ReplyToID != nil {
			parentIDs = append(parentIDs, *m.ReplyToID)
		}
	}

	parents := make(map[int64]*model.Message)
	if len(parentIDs) > 0 {
		var rows []*model.Message
		err := db.Preload("Author").Where("id IN ?", parentIDs).Find(&rows).Error
		if err != nil {
			return nil, err
		}
		for _, p := range rows {
			parents[p.ID] = p
		}
	}

	views := make([]*model.MessageView, 0, len(ids))
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			continue
		}
		view := &model.MessageView{
			ID:         m.ID,
			ChannelID:  m.ChannelID,
			Content:    m.Content,
			Attachment: m.Attachment,
			CreatedAt:  m.CreatedAt,
		}
		if m.Author != nil {
			view.Author = m.Author.Profile()
		}
		if m.ReplyToID != nil {
			snapshot := &model.ReplySnapshot{MessageID: *m.ReplyToID}
			if parent, ok := parents[*m.ReplyToID]; ok {
				content := parent.Content
				snapshot.Content = &content
				if parent.Author != nil {
					profile := parent.Author.Profile()
					snapshot.Author = &profile
				}
			}
			view.Reply = snapshot
		}
		views = append(views, view)
	}
	return views, nil
}
