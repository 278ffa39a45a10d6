package ports

import (
	"context"

	"github.com/rednet/account-service/internal/core/domain"
)

// AccountEventPublisher hands account events to the event feed. Publish must
// not block the caller on network I/O.
type AccountEventPublisher interface {
	Publish(event domain.AccountEvent)
}

// AccountEventSink delivers one event to its final destination, such as a
// Redis stream. Implementations may block.
type AccountEventSink interface {
	Send(ctx context.Context, event domain.AccountEvent) error
}
