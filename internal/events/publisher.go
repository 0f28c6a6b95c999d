// Package events publishes mutation notifications for the external live-query
// layer. Delivery is best-effort: a publish failure is logged and never fails
// the mutation that produced it.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tidechat/tide-api/internal/observability"
)

// Actions attached to published events.
const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionArchived = "archived"
	ActionDeleted  = "deleted"
)

// Event describes a committed mutation.
type Event struct {
	Source      string    `json:"source"`
	Entity      string    `json:"entity"`
	Action      string    `json:"action"`
	ObjectID    string    `json:"objectId"`
	WorkspaceID string    `json:"workspaceId,omitempty"`
	ActorID     string    `json:"actorId,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Publisher fans mutation events out to NATS and Redis pub/sub. Either sink
// may be nil; with both nil the publisher is a no-op.
type Publisher struct {
	nats        *nats.Conn
	natsSubject string
	redis       *redis.Client
	redisChan   string
	logger      zerolog.Logger
	nodeID      string
}

// NewPublisher constructs a publisher. channelBase names the topic family,
// e.g. "tide" yields the NATS subject "tide.mutations" and the Redis channel
// "tide:mutations".
func NewPublisher(natsConn *nats.Conn, redisClient *redis.Client, channelBase string, logger zerolog.Logger) *Publisher {
	subject := ""
	channel := ""
	if channelBase != "" {
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".mutations"
		channel = channelBase + ":mutations"
	}

	return &Publisher{
		nats:        natsConn,
		natsSubject: subject,
		redis:       redisClient,
		redisChan:   channel,
		logger:      logger.With().Str("component", "event_publisher").Logger(),
		nodeID:      uuid.NewString(),
	}
}

// Publish emits the event to every configured sink.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	if p == nil {
		return
	}

	event.Source = p.nodeID
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to marshal mutation event")
		return
	}

	observability.MutationEvents().WithLabelValues(event.Entity, event.Action).Inc()

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			p.logger.Warn().Err(err).Str("subject", p.natsSubject).Msg("failed to publish mutation event to nats")
		}
	}

	if p.redis != nil && p.redisChan != "" {
		if err := p.redis.Publish(ctx, p.redisChan, payload).Err(); err != nil {
			p.logger.Warn().Err(err).Str("channel", p.redisChan).Msg("failed to publish mutation event to redis")
		}
	}
}
