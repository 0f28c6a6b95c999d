// Package cache holds the Redis read-through cache for denormalized chat
// summaries. The database stays authoritative; a cold or absent cache only
// costs a read.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ChatSummary is the cached copy of a chat's denormalized listing fields.
type ChatSummary struct {
	ChatID             string `json:"chatId"`
	ChatType           string `json:"chatType"`
	LastMessageText    string `json:"lastMessageText"`
	LastMessageCounter int64  `json:"lastMessageCounter"`
}

// SummaryCache stores chat summaries in Redis with a TTL. A nil client makes
// every operation a no-op.
type SummaryCache struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
}

// NewSummaryCache constructs a summary cache.
func NewSummaryCache(client *redis.Client, prefix string, ttl time.Duration, logger zerolog.Logger) *SummaryCache {
	if prefix == "" {
		prefix = "tide:chat:summary"
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	return &SummaryCache{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With().Str("component", "summary_cache").Logger(),
	}
}

// Set stores the summary for its chat.
func (c *SummaryCache) Set(ctx context.Context, summary ChatSummary) {
	if c == nil || c.redis == nil {
		return
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to marshal chat summary")
		return
	}

	if err := c.redis.Set(ctx, c.key(summary.ChatID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("chat_id", summary.ChatID).Msg("failed to cache chat summary")
	}
}

// Get returns the cached summary, or nil on miss or error.
func (c *SummaryCache) Get(ctx context.Context, chatID string) *ChatSummary {
	if c == nil || c.redis == nil {
		return nil
	}

	raw, err := c.redis.Get(ctx, c.key(chatID)).Result()
	if err != nil {
		return nil
	}

	var summary ChatSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		c.logger.Warn().Err(err).Str("chat_id", chatID).Msg("failed to unmarshal cached chat summary")
		return nil
	}
	return &summary
}

// Invalidate drops the cached summary for a chat.
func (c *SummaryCache) Invalidate(ctx context.Context, chatID string) {
	if c == nil || c.redis == nil {
		return
	}

	if err := c.redis.Del(ctx, c.key(chatID)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("chat_id", chatID).Msg("failed to invalidate chat summary")
	}
}

func (c *SummaryCache) key(chatID string) string {
	return fmt.Sprintf("%s:%s", c.prefix, chatID)
}
