package audit

import "time"

// TopicLinkCreated is the stream link creations are published to.
const TopicLinkCreated = "link.created"

// LinkCreatedEvent represents an event emitted when a short link is created.
type LinkCreatedEvent struct {
	ShortID      string    `json:"shortId"`
	Destination  string    `json:"destination"`
	Description  string    `json:"description,omitempty"`
	ShadowUserID string    `json:"shadowUserId"`
	Channel      string    `json:"channel"`
	CreatedAt    time.Time `json:"createdAt"`
	ClientIP     string    `json:"clientIp"`
	UserAgent    string    `json:"userAgent"`
	Referrer     string    `json:"referrer,omitempty"`
}

// Channels a link can be created through.
const (
	ChannelForm = "form"
	ChannelAPI  = "api"
)
