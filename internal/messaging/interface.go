package messaging

import "context"

// PublisherInterface is what the mind map service needs from the broker.
// Tests substitute an in-memory implementation.
type PublisherInterface interface {
	Publish(ctx context.Context, routingKey string, eventData interface{}) error
	Close() error
}

var _ PublisherInterface = (*Publisher)(nil)
