package links

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

const (
	DefaultFoundStatus = http.StatusMovedPermanently
	DefaultFallback    = "/create"
)

// Decision is where a short id sends the client.
type Decision struct {
	Found    bool
	Location string
	Status   int
}

// Resolver turns short ids into redirect decisions.
type Resolver struct {
	store       Repository
	foundStatus int
	fallback    string
}

// NewResolver creates a resolver. Zero values select DefaultFoundStatus and
// DefaultFallback; any other found status must be a redirect.
func NewResolver(store Repository, foundStatus int, fallback string) (*Resolver, error) {
	switch foundStatus {
	case 0:
		foundStatus = DefaultFoundStatus
	case http.StatusMovedPermanently, http.StatusFound,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
	default:
		return nil, fmt.Errorf("%w: got %d", ErrInvalidFoundStatus, foundStatus)
	}

	if fallback == "" {
		fallback = DefaultFallback
	}

	return &Resolver{
		store:       store,
		foundStatus: foundStatus,
		fallback:    fallback,
	}, nil
}

// Resolve always yields a usable decision. Store failures also return the
// fallback decision together with the error so callers can log it.
func (r *Resolver) Resolve(ctx context.Context, shortID string) (Decision, error) {
	if shortID == "" {
		return r.fallbackDecision(), nil
	}

	link, err := r.store.GetByShortID(ctx, shortID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return r.fallbackDecision(), nil
		}

		return r.fallbackDecision(), fmt.Errorf("resolve %s: %w", shortID, err)
	}

	return Decision{
		Found:    true,
		Location: link.Destination,
		Status:   r.foundStatus,
	}, nil
}

func (r *Resolver) fallbackDecision() Decision {
	return Decision{
		Location: r.fallback,
		Status:   http.StatusFound,
	}
}
