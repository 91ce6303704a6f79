package identity

import (
	"net/http"
	"time"

	"github.com/serroba/shadow-links/internal/idgen"
)

// CookieName carries the shadow user id between requests.
const CookieName = "shadowUserId"

// DefaultMaxAge keeps the shadow identity for a year.
const DefaultMaxAge = 365 * 24 * time.Hour

// Identity is the shadow user behind a request.
type Identity struct {
	ID string
	// Minted is true when no cookie was presented and ID was just generated.
	Minted bool
}

// Shadow resolves and mints cookie-carried pseudo identities.
type Shadow struct {
	generator idgen.Generator
	maxAge    time.Duration
	secure    bool
}

// NewShadow creates a shadow identity resolver. A zero maxAge issues session cookies.
func NewShadow(generator idgen.Generator, maxAge time.Duration, secure bool) *Shadow {
	return &Shadow{
		generator: generator,
		maxAge:    maxAge,
		secure:    secure,
	}
}

// ResolveOrMint returns the identity carried by cookieValue, or a fresh one
// when the cookie is absent or empty. Presented values are trusted as-is.
func (s *Shadow) ResolveOrMint(cookieValue string) Identity {
	if cookieValue != "" {
		return Identity{ID: cookieValue}
	}

	return Identity{
		ID:     s.generator.Generate(idgen.ShadowIDLength),
		Minted: true,
	}
}

// Cookie builds the response cookie persisting id.
func (s *Shadow) Cookie(id string) *http.Cookie {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}

	if s.maxAge > 0 {
		cookie.MaxAge = int(s.maxAge / time.Second)
		cookie.Expires = time.Now().Add(s.maxAge).UTC()
	}

	return cookie
}

// SetCookie renders the Set-Cookie header value for id.
func (s *Shadow) SetCookie(id string) string {
	return s.Cookie(id).String()
}
