package consumer

import (
	"context"
	"strconv"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/driftchat/drift/internal/ws"
	logger "github.com/driftchat/drift/middleware/log"
)

// Bridge subscribes to the fanout topics and forwards events into the local
// websocket hub. Each gateway node runs one bridge; the hub's topic
// ownership check keeps nodes from double-delivering in a multi-node setup.
type Bridge struct {
	client *redis.Client
	hub    *ws.Hub
	log    *logger.Logger
}

func NewBridge(client *redis.Client, hub *ws.Hub, log *logger.Logger) *Bridge {
	return &Bridge{client: client, hub: hub, log: log}
}

// Run blocks until the context is cancelled, routing published events to
// the hub. Events on unknown topics are logged and dropped.
func (b *Bridge) Run(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, "channel:*", "user:*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.route(msg.Channel, []byte(msg.Payload))
		}
	}
}

func (b *Bridge) route(topic string, payload []byte) {
	if !b.hub.OwnsTopic(topic) {
		return
	}

	scope, rawID, found := strings.Cut(topic, ":")
	if !found {
		b.log.Warn("dropping event on malformed topic", zap.String("topic", topic))
		return
	}
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		b.log.Warn("dropping event on malformed topic", zap.String("topic", topic))
		return
	}

	switch scope {
	case "channel":
		b.hub.BroadcastToChannel(uint(id), payload)
	case "user":
		b.hub.SendToUser(uint(id), payload)
	default:
		b.log.Warn("dropping event on unknown topic scope", zap.String("topic", topic))
	}
}
