package links

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/serroba/shadow-links/internal/idgen"
)

// DefaultCreateAttempts bounds how many short ids are drawn before giving up on collisions.
const DefaultCreateAttempts = 3

// CreateInput is a creation request made on behalf of a shadow user.
type CreateInput struct {
	Owner       string
	Destination string `validate:"required,http_url"`
	Description string
}

// Creator validates input, mints a short id and persists the link.
type Creator struct {
	store     Repository
	generator idgen.Generator
	policy    *DestinationPolicy
	validate  *validator.Validate
	attempts  int
	now       func() time.Time
}

// NewCreator creates a link creator. A nil policy allows every destination;
// attempts below one fall back to DefaultCreateAttempts.
func NewCreator(store Repository, generator idgen.Generator, policy *DestinationPolicy, attempts int) *Creator {
	if attempts < 1 {
		attempts = DefaultCreateAttempts
	}

	return &Creator{
		store:     store,
		generator: generator,
		policy:    policy,
		validate:  validator.New(),
		attempts:  attempts,
		now:       time.Now,
	}
}

// Create persists a new link owned by input.Owner.
func (c *Creator) Create(ctx context.Context, input CreateInput) (*Link, error) {
	if input.Owner == "" {
		return nil, ErrMissingIdentity
	}

	input.Destination = strings.TrimSpace(input.Destination)

	if err := c.CheckDestination(input); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		link := &Link{
			ShortID:      c.generator.Generate(idgen.ShortIDLength),
			Destination:  input.Destination,
			Description:  input.Description,
			ShadowUserID: input.Owner,
			CreatedAt:    c.now().UTC(),
		}

		err := c.store.Save(ctx, link)
		if err == nil {
			return link, nil
		}

		if !errors.Is(err, ErrDuplicateShortID) || attempt >= c.attempts {
			return nil, fmt.Errorf("save link after %d attempt(s): %w", attempt, err)
		}
	}
}

// CheckDestination reports ErrInvalidDestination for malformed URLs and
// ErrDisallowedDestination for URLs outside the configured policy.
func (c *Creator) CheckDestination(input CreateInput) error {
	if err := c.validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDestination, err.Error())
	}

	u, err := url.Parse(input.Destination)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDestination, err.Error())
	}

	if !c.policy.Allows(u) {
		return fmt.Errorf("%w: %s", ErrDisallowedDestination, u.Redacted())
	}

	return nil
}

// List returns the owner's links, oldest first. An empty owner has no links.
func (c *Creator) List(ctx context.Context, owner string) ([]*Link, error) {
	if owner == "" {
		return []*Link{}, nil
	}

	found, err := c.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	return found, nil
}
