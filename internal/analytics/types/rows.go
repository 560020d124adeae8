package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// OrderEventRow mirrors the order_events BigQuery schema. One row is written
// per order lifecycle event.
type OrderEventRow struct {
	EventID          string             `bigquery:"event_id"`
	EventType        string             `bigquery:"event_type"`
	OccurredAt       time.Time          `bigquery:"occurred_at"`
	OrderID          string             `bigquery:"order_id"`
	UserID           *string            `bigquery:"user_id"`
	ActorIsAdmin     bool               `bigquery:"actor_is_admin"`
	Status           *string            `bigquery:"status"`
	PreviousStatus   *string            `bigquery:"previous_status"`
	PaymentMethod    *string            `bigquery:"payment_method"`
	Source           *string            `bigquery:"source"`
	Currency         *string            `bigquery:"currency"`
	TotalAmountCents *int64             `bigquery:"total_amount_cents"`
	ItemCount        *int64             `bigquery:"item_count"`
	FailureCode      *string            `bigquery:"failure_code"`
	Items            cbigquery.NullJSON `bigquery:"items"`
	Payload          cbigquery.NullJSON `bigquery:"payload"`
}
