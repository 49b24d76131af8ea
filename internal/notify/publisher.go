package notify

import (
	"context"

	"storefront/internal/cache"

	"go.uber.org/zap"
)

// ChannelFor names the pub/sub channel carrying a session's notifications.
func ChannelFor(sessionID string) string {
	return "session:" + sessionID
}

type publisher struct {
	cache   *cache.Cache
	channel string
	logger  *zap.Logger
}

// Publisher pushes notifications onto Redis so WebSocket listeners can relay
// them. It returns nil when the cache is disabled.
func Publisher(c *cache.Cache, channel string, logger *zap.Logger) Notifier {
	if !c.Enabled() {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &publisher{cache: c, channel: channel, logger: logger}
}

func (p *publisher) Notify(ctx context.Context, n Notification) {
	if err := p.cache.Publish(context.WithoutCancel(ctx), p.channel, n); err != nil {
		p.logger.Warn("notification_publish_failed", zap.String("channel", p.channel), zap.Error(err))
	}
}
