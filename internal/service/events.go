package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Skotchmaster/storefront/internal/logging"
)

// Publisher is satisfied by *mykafka.Producer.
type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event interface{}) error
}

const publishTimeout = 5 * time.Second

// publish never fails the caller; delivery problems are only logged.
func publish(ctx context.Context, p Publisher, topic string, key any, event map[string]any) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.PublishEvent(ctx, topic, fmt.Sprint(key), event); err != nil {
		logging.FromContext(ctx).Warn("publish_event_error", "topic", topic, "type", event["type"], "error", err)
	}
}
