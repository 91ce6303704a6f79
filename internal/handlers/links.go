package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shadow-links/internal/audit"
	"github.com/serroba/shadow-links/internal/identity"
	"github.com/serroba/shadow-links/internal/links"
	"github.com/serroba/shadow-links/internal/messaging"
	"go.uber.org/zap"
)

// ListingPath is where the listing page and its form live.
const ListingPath = "/create"

// LinkHandler serves redirects, the listing page and the links API.
type LinkHandler struct {
	resolver           *links.Resolver
	creator            *links.Creator
	shadow             *identity.Shadow
	baseURL            string
	strictIdentity     bool
	publishLinkCreated messaging.Publish[audit.LinkCreatedEvent]
	logger             *zap.Logger
}

// NewLinkHandler creates a new link handler.
func NewLinkHandler(
	resolver *links.Resolver,
	creator *links.Creator,
	shadow *identity.Shadow,
	baseURL string,
	strictIdentity bool,
	publishLinkCreated messaging.Publish[audit.LinkCreatedEvent],
	logger *zap.Logger,
) *LinkHandler {
	return &LinkHandler{
		resolver:           resolver,
		creator:            creator,
		shadow:             shadow,
		baseURL:            strings.TrimRight(baseURL, "/"),
		strictIdentity:     strictIdentity,
		publishLinkCreated: publishLinkCreated,
		logger:             logger,
	}
}

// Redirect sends the client to the link's destination, or to the fallback page.
func (h *LinkHandler) Redirect(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	decision, err := h.resolver.Resolve(ctx, req.ShortID)
	if err != nil {
		h.logger.Error("failed to resolve short id",
			zap.String("shortId", req.ShortID),
			zap.Error(err),
		)
	}

	return &RedirectResponse{
		Status:   decision.Status,
		Location: decision.Location,
	}, nil
}

// CreatePage renders the caller's links and refreshes their identity cookie.
func (h *LinkHandler) CreatePage(ctx context.Context, req *CreatePageRequest) (*HTMLResponse, error) {
	id := h.shadow.ResolveOrMint(req.ShadowUserID)

	owned, err := h.creator.List(ctx, id.ID)
	if err != nil {
		h.logger.Error("failed to list links",
			zap.String("shadowUserId", id.ID),
			zap.Error(err),
		)

		return nil, huma.Error500InternalServerError("failed to list links")
	}

	body, err := renderCreatePage(h.pageData(id.ID, owned))
	if err != nil {
		h.logger.Error("failed to render listing page", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to render page")
	}

	return &HTMLResponse{
		ContentType:  "text/html; charset=utf-8",
		CacheControl: "no-store",
		SetCookie:    h.shadow.SetCookie(id.ID),
		Body:         body,
	}, nil
}

// CreateFromForm handles the listing page form. It always redirects back to the listing.
func (h *LinkHandler) CreateFromForm(ctx context.Context, req *CreateFormRequest) (*RedirectResponse, error) {
	resp := &RedirectResponse{Status: http.StatusFound, Location: ListingPath}

	form, err := url.ParseQuery(string(req.RawBody))
	if err != nil {
		h.logger.Debug("rejected malformed form", zap.Error(err))

		return resp, nil
	}

	id := h.caller(req.ShadowUserID)
	if id.Minted {
		resp.SetCookie = h.shadow.SetCookie(id.ID)
	}

	link, err := h.creator.Create(ctx, links.CreateInput{
		Owner:       id.ID,
		Destination: form.Get("destination"),
		Description: form.Get("description"),
	})
	if err != nil {
		h.logCreateFailure(err)

		return resp, nil
	}

	h.publish(ctx, link, audit.ChannelForm)

	return resp, nil
}

// ListLinks returns the caller's links as JSON.
func (h *LinkHandler) ListLinks(ctx context.Context, req *ListLinksRequest) (*ListLinksResponse, error) {
	if req.ShadowUserID == "" {
		return nil, huma.Error401Unauthorized("missing " + identity.CookieName + " cookie")
	}

	owned, err := h.creator.List(ctx, req.ShadowUserID)
	if err != nil {
		h.logger.Error("failed to list links",
			zap.String("shadowUserId", req.ShadowUserID),
			zap.Error(err),
		)

		return nil, huma.Error500InternalServerError("failed to list links")
	}

	resp := &ListLinksResponse{}
	resp.Body.ShadowUserID = req.ShadowUserID
	resp.Body.Links = make([]LinkBody, 0, len(owned))

	for _, link := range owned {
		resp.Body.Links = append(resp.Body.Links, h.linkBody(link))
	}

	return resp, nil
}

// CreateLink creates a link through the JSON API.
func (h *LinkHandler) CreateLink(ctx context.Context, req *CreateLinkRequest) (*CreateLinkResponse, error) {
	id := h.caller(req.ShadowUserID)

	link, err := h.creator.Create(ctx, links.CreateInput{
		Owner:       id.ID,
		Destination: req.Body.Destination,
		Description: req.Body.Description,
	})
	if err != nil {
		return nil, h.createError(err)
	}

	h.publish(ctx, link, audit.ChannelAPI)

	resp := &CreateLinkResponse{Body: h.linkBody(link)}
	resp.Location = resp.Body.ShortURL

	if id.Minted {
		resp.SetCookie = h.shadow.SetCookie(id.ID)
	}

	return resp, nil
}

// caller resolves the identity, leaving the owner empty when strict mode refuses to mint.
func (h *LinkHandler) caller(cookieValue string) identity.Identity {
	if cookieValue == "" && h.strictIdentity {
		return identity.Identity{}
	}

	return h.shadow.ResolveOrMint(cookieValue)
}

func (h *LinkHandler) createError(err error) error {
	switch {
	case errors.Is(err, links.ErrMissingIdentity):
		return huma.Error401Unauthorized("missing " + identity.CookieName + " cookie")
	case errors.Is(err, links.ErrInvalidDestination):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, links.ErrDisallowedDestination):
		return huma.Error403Forbidden(err.Error())
	default:
		h.logger.Error("failed to create link", zap.Error(err))

		return huma.Error500InternalServerError("failed to create link")
	}
}

func (h *LinkHandler) logCreateFailure(err error) {
	if errors.Is(err, links.ErrMissingIdentity) ||
		errors.Is(err, links.ErrInvalidDestination) ||
		errors.Is(err, links.ErrDisallowedDestination) {
		h.logger.Debug("rejected link creation", zap.Error(err))

		return
	}

	h.logger.Error("failed to create link", zap.Error(err))
}

func (h *LinkHandler) publish(ctx context.Context, link *links.Link, channel string) {
	meta := RequestMetaFromContext(ctx)

	event := &audit.LinkCreatedEvent{
		ShortID:      link.ShortID,
		Destination:  link.Destination,
		Description:  link.Description,
		ShadowUserID: link.ShadowUserID,
		Channel:      channel,
		CreatedAt:    link.CreatedAt,
		ClientIP:     meta.ClientIP,
		UserAgent:    meta.UserAgent,
		Referrer:     meta.Referrer,
	}

	if err := h.publishLinkCreated(ctx, event); err != nil {
		h.logger.Error("failed to publish link created event",
			zap.String("shortId", link.ShortID),
			zap.Error(err),
		)
	}
}

func (h *LinkHandler) shortURL(shortID string) string {
	return h.baseURL + "/" + shortID
}

func (h *LinkHandler) linkBody(link *links.Link) LinkBody {
	return LinkBody{
		ShortID:     link.ShortID,
		ShortURL:    h.shortURL(link.ShortID),
		Destination: link.Destination,
		Description: link.Description,
		CreatedAt:   link.CreatedAt,
	}
}

func (h *LinkHandler) pageData(shadowUserID string, owned []*links.Link) createPageData {
	data := createPageData{
		ShadowUserID: shadowUserID,
		Links:        make([]pageLink, 0, len(owned)),
	}

	for _, link := range owned {
		data.Links = append(data.Links, pageLink{
			ShortURL:    h.shortURL(link.ShortID),
			Destination: link.Destination,
			Description: link.Description,
		})
	}

	return data
}
