package links

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound              = errors.New("link not found")
	ErrDuplicateShortID      = errors.New("short id already taken")
	ErrMissingIdentity       = errors.New("missing shadow user identity")
	ErrInvalidDestination    = errors.New("invalid destination url")
	ErrDisallowedDestination = errors.New("destination not allowed")
	ErrInvalidFoundStatus    = errors.New("found status must be 301, 302, 307 or 308")
)

// Link maps a short id to a destination, grouped under a shadow user.
type Link struct {
	ShortID      string
	Destination  string
	Description  string
	ShadowUserID string
	CreatedAt    time.Time
}

// Repository persists links. Implementations must reject a duplicate short id
// with ErrDuplicateShortID instead of overwriting the existing link.
type Repository interface {
	Save(ctx context.Context, link *Link) error
	GetByShortID(ctx context.Context, shortID string) (*Link, error)
	// ListByOwner returns the owner's links ordered by creation time, oldest first.
	ListByOwner(ctx context.Context, shadowUserID string) ([]*Link, error)
}
