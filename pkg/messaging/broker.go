package messaging

import (
	"context"
)

// Broker defines the interface for the realtime pub/sub backend.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Envelope is the wire shape published on realtime channels.
type Envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}
