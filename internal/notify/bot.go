package notify

import (
	"strings"
)

// Producer is what the notifier needs from the message queue.
type Producer interface {
	SendMessage(key string, message any) error
}

// Mention is the record handed to the external bot service.
type Mention struct {
	Content    string `json:"content"`
	ChannelID  uint   `json:"channel_id"`
	AuthorName string `json:"author_name"`
}

// BotNotifier forwards bot mentions to an external bot service over the
// message queue. It is strictly fire-and-forget: a nil producer (degraded
// mode, brokers unreachable at startup) makes Notify a no-op.
type BotNotifier struct {
	producer Producer
	trigger  string
}

func NewBotNotifier(producer Producer, trigger string) *BotNotifier {
	return &BotNotifier{producer: producer, trigger: trigger}
}

// Matches reports whether the content addresses the bot.
func (n *BotNotifier) Matches(content string) bool {
	return n.trigger != "" && strings.Contains(content, n.trigger)
}

func (n *BotNotifier) Notify(content string, channelID uint, authorName string) error {
	if n.producer == nil {
		return nil
	}
	return n.producer.SendMessage(n.trigger, Mention{
		Content:    content,
		ChannelID:  channelID,
		AuthorName: authorName,
	})
}
