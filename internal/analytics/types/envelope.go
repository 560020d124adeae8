package types

import (
	"encoding/json"
	"time"

	"github.com/delicado-shop/delicado-api/pkg/enums"
	"github.com/delicado-shop/delicado-api/pkg/outbox"
)

// Envelope is an outbox event as received from the analytics subscription.
type Envelope struct {
	EventID       string                    `json:"event_id"`
	EventType     enums.OutboxEventType     `json:"event_type"`
	AggregateType enums.OutboxAggregateType `json:"aggregate_type"`
	AggregateID   string                    `json:"aggregate_id"`
	OccurredAt    time.Time                 `json:"occurred_at"`
	Actor         *outbox.ActorRef          `json:"actor,omitempty"`
	Payload       json.RawMessage           `json:"payload"`
}
