package outbox

import (
	"time"
)

// Message is an order lifecycle event waiting to be published to RabbitMQ.
// Rows are written in the same transaction as the state change they
// describe and drained by the outbox worker.
type Message struct {
	ID           int64
	QueueName    string
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}

// NewJSON builds a pending message carrying a JSON payload for the given
// routing key.
func NewJSON(exchange, routingKey string, payload []byte, maxRetries int) Message {
	now := time.Now()

	return Message{
		ExchangeName: exchange,
		RoutingKey:   routingKey,
		Payload:      payload,
		ContentType:  "application/json",
		MaxRetries:   maxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
		NextRetryAt:  now,
	}
}
