package store

import (
	"context"

	"github.com/serroba/shadow-links/internal/audit"
	"go.uber.org/zap"
)

// Log is an audit.Store that writes every event to the logger.
type Log struct {
	logger *zap.Logger
}

// NewLog creates a new logging audit store.
func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger.Named("audit")}
}

func (l *Log) SaveLinkCreated(_ context.Context, event *audit.LinkCreatedEvent) error {
	l.logger.Info("link created",
		zap.String("shortId", event.ShortID),
		zap.String("destination", event.Destination),
		zap.String("shadowUserId", event.ShadowUserID),
		zap.String("channel", event.Channel),
		zap.Time("createdAt", event.CreatedAt),
		zap.String("clientIp", event.ClientIP),
	)

	return nil
}
