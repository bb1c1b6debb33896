package fanout

import (
	"fmt"

	"github.com/driftchat/drift/internal/model"
)

// Event types published to subscribers.
const (
	EventMessageSent    = "message_sent"
	EventMessageUpdated = "message_updated"
	EventMessageDeleted = "message_deleted"
	EventTyping         = "typing"
	EventChannelOpened  = "channel_opened"
)

// Event is the envelope every fanout payload travels in.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type MessageSentPayload struct {
	Message *model.MessageView `json:"message"`
}

type MessageUpdatedPayload struct {
	ID        int64  `json:"id"`
	ChannelID uint   `json:"channel_id"`
	Content   string `json:"content"`
}

type MessageDeletedPayload struct {
	ID        int64 `json:"id"`
	ChannelID uint  `json:"channel_id"`
}

type TypingPayload struct {
	ChannelID uint   `json:"channel_id"`
	UserID    uint   `json:"user_id"`
	UserName  string `json:"username"`
}

type ChannelOpenedPayload struct {
	ChannelID uint `json:"channel_id"`
}

// ChannelTopic addresses all subscribers of a channel.
func ChannelTopic(channelID uint) string {
	return fmt.Sprintf("channel:%d", channelID)
}

// UserTopic addresses a single user across their connections.
func UserTopic(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}
