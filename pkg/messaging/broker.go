package messaging

import (
	"context"
)

// Broker publishes JSON messages on named channels and streams raw payloads back.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Handler consumes one raw payload.
type Handler func(ctx context.Context, payload []byte) error

// Consume drains a subscription until ctx ends or the channel closes. Handler
// errors are passed to onError and do not stop consumption.
func Consume(ctx context.Context, b Broker, channel string, h Handler, onError func(error)) error {
	msgs, err := b.Subscribe(ctx, channel)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := h(ctx, payload); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}
