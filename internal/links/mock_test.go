package links_test

import (
	"context"
	"errors"

	"github.com/serroba/shadow-links/internal/links"
)

var errMock = errors.New("mock error")

// sequenceGenerator hands out ids in order, repeating the last one.
type sequenceGenerator struct {
	ids   []string
	calls int
}

func (g *sequenceGenerator) Generate(_ int) string {
	id := g.ids[min(g.calls, len(g.ids)-1)]
	g.calls++

	return id
}

// mockRepository is a test double for links.Repository.
type mockRepository struct {
	saveErrs []error
	getErr   error
	listErr  error
	link     *links.Link
	saved    []*links.Link
}

func (m *mockRepository) Save(_ context.Context, link *links.Link) error {
	if len(m.saveErrs) > 0 {
		err := m.saveErrs[0]
		m.saveErrs = m.saveErrs[1:]

		if err != nil {
			return err
		}
	}

	m.saved = append(m.saved, link)

	return nil
}

func (m *mockRepository) GetByShortID(_ context.Context, _ string) (*links.Link, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}

	if m.link == nil {
		return nil, links.ErrNotFound
	}

	return m.link, nil
}

func (m *mockRepository) ListByOwner(_ context.Context, _ string) ([]*links.Link, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}

	return m.saved, nil
}
