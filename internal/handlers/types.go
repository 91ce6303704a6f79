package handlers

import "time"

// RedirectRequest is the request for following a short link.
type RedirectRequest struct {
	ShortID string `doc:"The short id" example:"aZ3k9Q" path:"shortId"`
}

// RedirectResponse sends the client elsewhere, optionally persisting a minted identity.
type RedirectResponse struct {
	Status    int
	Location  string `doc:"Redirect target"                header:"Location"`
	SetCookie string `doc:"Shadow identity cookie, if minted" header:"Set-Cookie"`
}

// CreatePageRequest is the request for the listing page.
type CreatePageRequest struct {
	ShadowUserID string `cookie:"shadowUserId" doc:"Shadow user id; minted when absent"`
}

// HTMLResponse is a rendered page.
type HTMLResponse struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	SetCookie    string `header:"Set-Cookie"`
	Body         []byte
}

// CreateFormRequest is the urlencoded form posted by the listing page.
type CreateFormRequest struct {
	ShadowUserID string `cookie:"shadowUserId" doc:"Shadow user id"`
	RawBody      []byte `contentType:"application/x-www-form-urlencoded"`
}

// LinkBody is the JSON representation of a link.
type LinkBody struct {
	ShortID     string    `doc:"The short id"               example:"aZ3k9Q"                           json:"shortId"`
	ShortURL    string    `doc:"The full short URL"         example:"http://localhost:8888/aZ3k9Q"     json:"shortUrl"`
	Destination string    `doc:"Where the short URL points" example:"https://example.com/x"            json:"destination"`
	Description string    `doc:"Optional description"       example:"docs"                             json:"description,omitempty"`
	CreatedAt   time.Time `doc:"Creation time"              json:"createdAt"`
}

// ListLinksRequest lists the caller's links.
type ListLinksRequest struct {
	ShadowUserID string `cookie:"shadowUserId" doc:"Shadow user id"`
}

// ListLinksResponse holds the caller's links, oldest first.
type ListLinksResponse struct {
	Body struct {
		ShadowUserID string     `doc:"The caller's shadow user id" json:"shadowUserId"`
		Links        []LinkBody `doc:"Links owned by the caller"   json:"links"`
	}
}

// CreateLinkRequest creates a link through the JSON API.
type CreateLinkRequest struct {
	ShadowUserID string `cookie:"shadowUserId" doc:"Shadow user id; minted when absent unless strict identity is enabled"`
	Body         struct {
		Destination string `doc:"Absolute URL to redirect to" example:"https://example.com/x" json:"destination"`
		Description string `doc:"Optional description"        example:"docs"                  json:"description,omitempty"`
	}
}

// CreateLinkResponse is the response for a created link.
type CreateLinkResponse struct {
	Location  string `doc:"The short URL"                     header:"Location"`
	SetCookie string `doc:"Shadow identity cookie, if minted" header:"Set-Cookie"`
	Body      LinkBody
}
