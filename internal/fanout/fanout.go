package fanout

import (
	"context"
	"encoding/json"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"github.com/driftchat/drift/internal/model"
)

// Publisher is the topic-addressed publish primitive the fanout rides on.
// Delivery is best-effort, at-least-once; no acknowledgment is expected.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// RedisPublisher publishes over Redis pub/sub.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := p.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

// Fanout publishes typed lifecycle events to channel- and user-scoped
// topics. It is invoked only after the triggering transaction has
// committed; publish failures are the caller's to log and drop, never to
// roll back.
type Fanout struct {
	publisher Publisher
}

func New(publisher Publisher) *Fanout {
	return &Fanout{publisher: publisher}
}

func (f *Fanout) MessageSent(ctx context.Context, message *model.MessageView) error {
	return f.publish(ctx, ChannelTopic(message.ChannelID), Event{
		Type:    EventMessageSent,
		Payload: MessageSentPayload{Message: message},
	})
}

func (f *Fanout) MessageUpdated(ctx context.Context, channelID uint, messageID int64, content string) error {
	return f.publish(ctx, ChannelTopic(channelID), Event{
		Type:    EventMessageUpdated,
		Payload: MessageUpdatedPayload{ID: messageID, ChannelID: channelID, Content: content},
	})
}

func (f *Fanout) MessageDeleted(ctx context.Context, channelID uint, messageID int64) error {
	return f.publish(ctx, ChannelTopic(channelID), Event{
		Type:    EventMessageDeleted,
		Payload: MessageDeletedPayload{ID: messageID, ChannelID: channelID},
	})
}

func (f *Fanout) Typing(ctx context.Context, channelID, userID uint, username string) error {
	return f.publish(ctx, ChannelTopic(channelID), Event{
		Type:    EventTyping,
		Payload: TypingPayload{ChannelID: channelID, UserID: userID, UserName: username},
	})
}

// ChannelOpened goes to the recipient's user topic, not the channel topic:
// the recipient has no reason to be subscribed to a DM they have never seen.
func (f *Fanout) ChannelOpened(ctx context.Context, recipientID, channelID uint) error {
	return f.publish(ctx, UserTopic(recipientID), Event{
		Type:    EventChannelOpened,
		Payload: ChannelOpenedPayload{ChannelID: channelID},
	})
}

func (f *Fanout) publish(ctx context.Context, topic string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}
	return f.publisher.Publish(ctx, topic, data)
}
