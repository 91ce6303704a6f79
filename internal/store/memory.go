package store

import (
	"context"
	"sync"

	"github.com/serroba/shadow-links/internal/links"
)

// MemoryStore is an in-memory implementation of links.Repository.
type MemoryStore struct {
	mu     sync.RWMutex
	links  map[string]links.Link // shortID -> link
	owners map[string][]string   // shadowUserID -> shortIDs in insertion order
}

// NewMemoryStore creates a new in-memory link store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		links:  make(map[string]links.Link),
		owners: make(map[string][]string),
	}
}

func (m *MemoryStore) Save(_ context.Context, link *links.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.links[link.ShortID]; exists {
		return links.ErrDuplicateShortID
	}

	m.links[link.ShortID] = *link
	m.owners[link.ShadowUserID] = append(m.owners[link.ShadowUserID], link.ShortID)

	return nil
}

func (m *MemoryStore) GetByShortID(_ context.Context, shortID string) (*links.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, ok := m.links[shortID]
	if !ok {
		return nil, links.ErrNotFound
	}

	return &link, nil
}

func (m *MemoryStore) ListByOwner(_ context.Context, shadowUserID string) ([]*links.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.owners[shadowUserID]
	owned := make([]*links.Link, 0, len(ids))

	for _, id := range ids {
		link := m.links[id]
		owned = append(owned, &link)
	}

	return owned, nil
}

var _ links.Repository = (*MemoryStore)(nil)
