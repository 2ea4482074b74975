package businessflow

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/synergydash/synergy-backend/models"
	"github.com/redis/go-redis/v9"
)

// DefaultEventChannel is the redis pub/sub channel the dashboard listens on
// for live synergy ID activity.
const DefaultEventChannel = "synergy_id_events"

// EventBroadcaster publishes committed synergy events so the admin dashboard
// can update live. Publishing is best effort: a broadcast failure is logged
// and never fails the state change it describes.
type EventBroadcaster struct {
	rc      *redis.Client
	channel string
}

// NewEventBroadcaster creates a broadcaster. A nil redis client disables
// broadcasting without requiring callers to branch.
func NewEventBroadcaster(rc *redis.Client, channel string) *EventBroadcaster {
	if channel == "" {
		channel = DefaultEventChannel
	}
	return &EventBroadcaster{rc: rc, channel: channel}
}

// Publish sends one committed event to the channel. Must only be called
// after the transaction that produced the event has committed.
func (b *EventBroadcaster) Publish(ctx context.Context, event *models.SynergyIDEvent) {
	if b == nil || b.rc == nil || event == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal synergy event %s for broadcast: %v", event.ID, err)
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := b.rc.Publish(pubCtx, b.channel, payload).Err(); err != nil {
		log.Printf("Failed to broadcast synergy event %s: %v", event.ID, err)
	}
}
