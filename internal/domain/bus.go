package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels (Community) or NATS (Pro).
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string

	// Channel settings (Community tier)
	ChannelBufferSize int

	// NATS settings (Pro tier)
	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds
}

// Topics published by the scoring pipeline.
const (
	TopicTransactionScored = "safepay.transaction.scored"
	TopicAlert             = "safepay.alert"
)

// ScoredEvent is the payload published on TopicTransactionScored after
// every scored transaction.
type ScoredEvent struct {
	TransactionRef   string   `json:"transactionRef"`
	SenderUPIID      string   `json:"senderUpiId"`
	ReceiverUPIID    string   `json:"receiverUpiId"`
	Amount           float64  `json:"amount"`
	IsFraud          bool     `json:"isFraud"`
	FraudProbability float64  `json:"fraudProbability"`
	RiskFactors      []string `json:"riskFactors,omitempty"`
	Timestamp        int64    `json:"timestamp"`
}
