package bot

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

func (b *Bot) withRecovery(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			if b.metrics != nil {
				b.metrics.ErrorsTotal.Inc()
			}
			b.logger.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}

// allow applies the per-chat message limit. A failing limiter lets the update through.
func (b *Bot) allow(ctx context.Context, chatID int64) bool {
	if b.limiter == nil || b.config == nil || b.config.Bot.RateLimitMessages <= 0 {
		return true
	}
	window := time.Duration(b.config.Bot.RateLimitWindow) * time.Second
	allowed, err := b.limiter.CheckRateLimit(ctx, chatID, b.config.Bot.RateLimitMessages, window)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("Rate limit check failed")
		return true
	}
	if !allowed {
		zerolog.Ctx(ctx).Warn().Int64("chat_id", chatID).Msg("Rate limit exceeded")
	}
	return allowed
}

func (b *Bot) countUpdate(kind string) {
	if b.metrics != nil {
		b.metrics.UpdatesTotal.WithLabelValues(kind).Inc()
	}
}
