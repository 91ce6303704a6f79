package audit

import (
	"context"
	"errors"

	"github.com/serroba/shadow-links/internal/messaging"
)

// ErrMissingShortID is returned for events that do not name a link.
var ErrMissingShortID = errors.New("link created event without short id")

// Store defines the interface for persisting audit events.
type Store interface {
	SaveLinkCreated(ctx context.Context, event *LinkCreatedEvent) error
}

// LinkCreatedHandler adapts a Store to a typed message handler. Events without
// a short id fail permanently.
func LinkCreatedHandler(store Store) messaging.Handler[LinkCreatedEvent] {
	return func(ctx context.Context, event *LinkCreatedEvent) error {
		if event.ShortID == "" {
			return messaging.Permanent(ErrMissingShortID)
		}

		return store.SaveLinkCreated(ctx, event)
	}
}
