package events

import (
	"context"
)

// Publisher delivers domain events to the message broker. A nil Publisher
// means events are disabled.
type Publisher interface {
	Publish(ctx context.Context, exchange string, event *Event, headers Headers) error
	Close() error
}
