package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder           OutboxAggregateType = "order"
	AggregatePersonalization OutboxAggregateType = "personalization"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePersonalization,
}

func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType is the domain event name carried on the wire.
type OutboxEventType string

const (
	EventOrderCreated         OutboxEventType = "order.created"
	EventOrderCompleted       OutboxEventType = "order.completed"
	EventOrderStatusChanged   OutboxEventType = "order.status_changed"
	EventPaymentFailed        OutboxEventType = "payment.failed"
	EventPersonalizationSaved OutboxEventType = "personalization.saved"
)

var validEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderCompleted,
	EventOrderStatusChanged,
	EventPaymentFailed,
	EventPersonalizationSaved,
}

func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
