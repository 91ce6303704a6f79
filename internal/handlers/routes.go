package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shadow-links/internal/ratelimit"
)

// RegisterRoutes registers the redirect, listing page and links API routes
// with per-endpoint rate limit configuration.
func RegisterRoutes(api huma.API, h *LinkHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "create-page",
		Method:      http.MethodGet,
		Path:        ListingPath,
		Summary:     "Listing page",
		Description: "Renders the caller's links and the creation form. Mints a shadow identity when none is presented.",
		Tags:        []string{"Pages"},
	}, h.CreatePage)

	// Creation is limited per minute, hour and day.
	formBody := &huma.RequestBody{}
	huma.Register(api, huma.Operation{
		OperationID: "create-from-form",
		Method:      http.MethodPost,
		Path:        ListingPath,
		Summary:     "Create link from form",
		Description: "Creates a link from the listing page form and redirects back to the listing.",
		Tags:        []string{"Pages"},
		RequestBody: formBody,
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Scope: ratelimit.ScopeCreate},
		},
	}, h.CreateFromForm)
	// huma marks raw bodies as required; an empty form still redirects to the listing.
	formBody.Required = false

	huma.Register(api, huma.Operation{
		OperationID: "list-links",
		Method:      http.MethodGet,
		Path:        "/api/links",
		Summary:     "List links",
		Description: "Lists the links owned by the caller's shadow identity, oldest first.",
		Tags:        []string{"Links"},
		Errors:      []int{http.StatusUnauthorized},
	}, h.ListLinks)

	huma.Register(api, huma.Operation{
		OperationID:   "create-link",
		Method:        http.MethodPost,
		Path:          "/api/links",
		Summary:       "Create link",
		Description:   "Creates a short link owned by the caller's shadow identity.",
		Tags:          []string{"Links"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Scope: ratelimit.ScopeCreate},
		},
	}, h.CreateLink)

	// Redirects are high-traffic reads with a relaxed limit.
	huma.Register(api, huma.Operation{
		OperationID: "follow-link",
		Method:      http.MethodGet,
		Path:        "/{shortId}",
		Summary:     "Follow short link",
		Description: "Redirects to the link's destination, or to the listing page for unknown ids.",
		Tags:        []string{"Links"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 1000},
				},
			},
		},
	}, h.Redirect)
}
