package cache

import (
	"context"
	"encoding/json"

	"shorts-publisher/domain/model"
	"shorts-publisher/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// ResultNotifier publishes every upload result as JSON on a Redis channel.
type ResultNotifier struct {
	client  publisher
	channel string
}

func NewResultNotifier(client publisher, channel string) *ResultNotifier {
	return &ResultNotifier{client: client, channel: channel}
}

func (n *ResultNotifier) Notify(ctx context.Context, res model.UploadResult) {
	if n == nil || n.client == nil {
		return
	}
	payload, err := json.Marshal(res)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error marshalling upload result")
		return
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		logger.GetLogger().WithField("channel", n.channel).WithField("error", err).Warn("Error publishing upload result to redis")
	}
}
