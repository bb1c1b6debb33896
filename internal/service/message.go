package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/driftchat/drift/internal/fanout"
	"github.com/driftchat/drift/internal/model"
	"github.com/driftchat/drift/internal/notify"
	"github.com/driftchat/drift/internal/repository"
	"github.com/driftchat/drift/internal/utils"
	logger "github.com/driftchat/drift/middleware/log"
)

const (
	maxContentLength = 2000

	// DefaultPageSize and MaxPageSize bound history pages.
	DefaultPageSize = 50
	MaxPageSize     = 50
)

// AttachmentInput is the uploaded-attachment descriptor a sender provides.
// Width/Height only carry meaning for image and video kinds.
type AttachmentInput struct {
	Kind   string `json:"kind" binding:"required"`
	URL    string `json:"url" binding:"required"`
	Width  *int   `json:"width"`
	Height *int   `json:"height"`
}

type SendRequest struct {
	ChannelID  uint
	AuthorID   uint
	AuthorName string
	Content    string
	Attachment *AttachmentInput
	ReplyToID  *int64
	Nonce      string
}

type SendResponse struct {
	Message       *model.MessageView `json:"message"`
	Nonce         string             `json:"nonce,omitempty"`
	ChannelOpened bool               `json:"channel_opened"`
}

type IMessageService interface {
	Send(ctx context.Context, req *SendRequest) (*SendResponse, error)
	Update(ctx context.Context, messageID int64, channelID, userID uint, content string) error
	Delete(ctx context.Context, messageID int64, userID uint) error
	History(ctx context.Context, channelID, userID uint, limit int, cursorType string, cursor *time.Time) ([]*model.MessageView, error)
	Typing(ctx context.Context, channelID, userID uint, username string) error
}

// MessageService owns the send/edit/delete pipeline. All multi-record writes
// happen inside the repository transaction; everything after commit (fanout,
// read-cursor advance, bot notify) is best-effort and dispatched on the
// worker pool so a slow downstream never blocks the response.
type MessageService struct {
	messageRepo    repository.IMessageRepository
	channelRepo    repository.IChannelRepository
	lastReadRepo   repository.ILastReadRepository
	channelService IChannelService
	fanout         *fanout.Fanout
	notifier       *notify.BotNotifier
	pool           *utils.WorkerPool
	log            *logger.Logger
	sanitizer      *bluemonday.Policy
}

func NewMessageService(
	messageRepo repository.IMessageRepository,
	channelRepo repository.IChannelRepository,
	lastReadRepo repository.ILastReadRepository,
	channelService IChannelService,
	fan *fanout.Fanout,
	notifier *notify.BotNotifier,
	pool *utils.WorkerPool,
	log *logger.Logger,
) IMessageService {
	return &MessageService{
		messageRepo:    messageRepo,
		channelRepo:    channelRepo,
		lastReadRepo:   lastReadRepo,
		channelService: channelService,
		fanout:         fan,
		notifier:       notifier,
		pool:           pool,
		log:            log,
		sanitizer:      bluemonday.StrictPolicy(),
	}
}

// Send persists the message with its attachment, channel pointer update and
// DM-open flip in one transaction, then fans the result out.
func (s *MessageService) Send(ctx context.Context, req *SendRequest) (*SendResponse, error) {
	content, err := s.cleanContent(req.Content, req.Attachment != nil)
	if err != nil {
		return nil, err
	}

	info, err := s.channelService.Resolve(ctx, req.ChannelID, req.AuthorID)
	if err != nil {
		return nil, err
	}

	var attachment *model.Attachment
	if req.Attachment != nil {
		attachment = &model.Attachment{
			ID:   uuid.New().String(),
			Kind: req.Attachment.Kind,
			URL:  req.Attachment.URL,
		}
		if attachment.Kind == model.AttachmentKindImage || attachment.Kind == model.AttachmentKindVideo {
			attachment.Width = req.Attachment.Width
			attachment.Height = req.Attachment.Height
		}
	}

	message := &model.Message{
		ChannelID: req.ChannelID,
		AuthorID:  req.AuthorID,
		Content:   content,
		ReplyToID: req.ReplyToID,
	}

	view, dmOpened, err := s.messageRepo.CreateWithChannelUpdate(ctx, message, attachment)
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	s.afterSend(ctx, info, view, dmOpened, req.AuthorID, req.AuthorName)

	return &SendResponse{
		Message:       view,
		Nonce:         req.Nonce,
		ChannelOpened: dmOpened,
	}, nil
}

// afterSend dispatches the post-commit side effects. They run on a detached
// context: the transaction is already committed, so a caller disconnect must
// not cancel them. Failures are logged and dropped, never surfaced.
func (s *MessageService) afterSend(ctx context.Context, info *ChannelInfo, view *model.MessageView, dmOpened bool, authorID uint, authorName string) {
	bg := logger.WithTraceID(context.Background(), logger.GetTraceID(ctx))

	s.pool.Submit(func() {
		if err := s.fanout.MessageSent(bg, view); err != nil {
			s.log.WarnContext(bg, "message fanout failed",
				zap.Int64("message_id", view.ID), zap.Error(err))
		}

		if dmOpened && info.Counterpart != nil {
			if err := s.fanout.ChannelOpened(bg, info.Counterpart.ID, view.ChannelID); err != nil {
				s.log.WarnContext(bg, "channel-opened fanout failed",
					zap.Uint("channel_id", view.ChannelID), zap.Error(err))
			}
		}

		// The sender has obviously read their own message. Keyed on the
		// request's author id, not the hydrated profile, which is zero when
		// the author row is missing.
		if err := s.lastReadRepo.Set(bg, view.ChannelID, authorID, view.CreatedAt); err != nil {
			s.log.WarnContext(bg, "failed to advance sender read cursor",
				zap.Uint("channel_id", view.ChannelID), zap.Error(err))
		}

		if s.notifier != nil && s.notifier.Matches(view.Content) {
			if err := s.notifier.Notify(view.Content, view.ChannelID, authorName); err != nil {
				s.log.WarnContext(bg, "bot notify failed",
					zap.Uint("channel_id", view.ChannelID), zap.Error(err))
			}
		}
	})
}

// Update edits a message's content. The row is matched on
// (id, channel, author) in one statement; zero rows affected is always
// ErrForbidden, never a silent no-op.
func (s *MessageService) Update(ctx context.Context, messageID int64, channelID, userID uint, content string) error {
	content, err := s.cleanContent(content, false)
	if err != nil {
		return err
	}

	rows, err := s.messageRepo.UpdateContent(ctx, messageID, channelID, userID, content)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	if rows == 0 {
		return ErrForbidden
	}

	bg := logger.WithTraceID(context.Background(), logger.GetTraceID(ctx))
	s.pool.Submit(func() {
		if err := s.fanout.MessageUpdated(bg, channelID, messageID, content); err != nil {
			s.log.WarnContext(bg, "message-updated fanout failed",
				zap.Int64("message_id", messageID), zap.Error(err))
		}
	})
	return nil
}

// Delete removes a message. Allowed for the author, or for the owner of the
// owning group channel; DMs have no owner, so author-only there.
func (s *MessageService) Delete(ctx context.Context, messageID int64, userID uint) error {
	message, err := s.messageRepo.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("failed to load message: %w", err)
	}

	channel, err := s.channelRepo.FindByID(ctx, message.ChannelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChannelNotFound
		}
		return fmt.Errorf("failed to load channel: %w", err)
	}

	allowed := message.AuthorID == userID ||
		(!channel.IsDM() && channel.OwnerID != nil && *channel.OwnerID == userID)
	if !allowed {
		return ErrForbidden
	}

	if err := s.messageRepo.Delete(ctx, messageID); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	bg := logger.WithTraceID(context.Background(), logger.GetTraceID(ctx))
	channelID := message.ChannelID
	s.pool.Submit(func() {
		if err := s.fanout.MessageDeleted(bg, channelID, messageID); err != nil {
			s.log.WarnContext(bg, "message-deleted fanout failed",
				zap.Int64("message_id", messageID), zap.Error(err))
		}
	})
	return nil
}

// History returns one hydrated page, newest first. Each call is a stateless
// fetch keyed by the caller's last seen timestamp; "before" pages backwards
// through history, "after" picks up messages newer than the cursor.
func (s *MessageService) History(ctx context.Context, channelID, userID uint, limit int, cursorType string, cursor *time.Time) ([]*model.MessageView, error) {
	if _, err := s.channelService.Resolve(ctx, channelID, userID); err != nil {
		return nil, err
	}

	// The limit clamps to [0, MaxPageSize]; zero is a valid request for an
	// empty page, not a request for the default.
	if limit < 0 {
		limit = 0
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	var dir repository.CursorDirection
	switch cursorType {
	case "", string(repository.CursorBefore):
		dir = repository.CursorBefore
	case string(repository.CursorAfter):
		dir = repository.CursorAfter
	default:
		return nil, ErrBadCursor
	}

	if limit == 0 {
		return []*model.MessageView{}, nil
	}

	views, err := s.messageRepo.FindPage(ctx, channelID, limit, dir, cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve messages: %w", err)
	}
	return views, nil
}

// Typing publishes a typing event to the channel topic. Nothing is
// persisted.
func (s *MessageService) Typing(ctx context.Context, channelID, userID uint, username string) error {
	if _, err := s.channelService.Resolve(ctx, channelID, userID); err != nil {
		return err
	}

	bg := logger.WithTraceID(context.Background(), logger.GetTraceID(ctx))
	s.pool.Submit(func() {
		if err := s.fanout.Typing(bg, channelID, userID, username); err != nil {
			s.log.WarnContext(bg, "typing fanout failed",
				zap.Uint("channel_id", channelID), zap.Error(err))
		}
	})
	return nil
}

// cleanContent trims and sanitizes user content and enforces the
// content-or-attachment rule. The length cap counts runes of the input as
// the user typed it; sanitizer escaping may expand the stored bytes beyond
// the cap and that is fine.
func (s *MessageService) cleanContent(content string, hasAttachment bool) (string, error) {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) > maxContentLength {
		return "", ErrContentTooLong
	}
	if content != "" {
		content = s.sanitizer.Sanitize(content)
	}
	if content == "" && !hasAttachment {
		return "", ErrEmptyMessage
	}
	return content, nil
}
