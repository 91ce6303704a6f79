package store

import (
	"context"
	"errors"
	"time"

	"github.com/serroba/shadow-links/internal/links"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// linkRecord is the GORM model behind GormStore.
type linkRecord struct {
	ShortID      string    `gorm:"primaryKey;size:16"`
	Destination  string    `gorm:"type:text;not null"`
	Description  *string   `gorm:"type:text"`
	ShadowUserID string    `gorm:"size:64;not null;index:idx_links_owner,priority:1"`
	CreatedAt    time.Time `gorm:"not null;index:idx_links_owner,priority:2"`
}

func (linkRecord) TableName() string {
	return "links"
}

// GormStore implements links.Repository on any GORM dialect (MySQL, SQLite).
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed link store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the links table.
func (g *GormStore) Migrate(ctx context.Context) error {
	return g.db.WithContext(ctx).AutoMigrate(&linkRecord{})
}

func (g *GormStore) Save(ctx context.Context, link *links.Link) error {
	record := linkRecord{
		ShortID:      link.ShortID,
		Destination:  link.Destination,
		Description:  nullableString(link.Description),
		ShadowUserID: link.ShadowUserID,
		CreatedAt:    link.CreatedAt,
	}

	result := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return links.ErrDuplicateShortID
	}

	return nil
}

func (g *GormStore) GetByShortID(ctx context.Context, shortID string) (*links.Link, error) {
	var record linkRecord

	err := g.db.WithContext(ctx).Where("short_id = ?", shortID).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, links.ErrNotFound
		}

		return nil, err
	}

	return record.toLink(), nil
}

func (g *GormStore) ListByOwner(ctx context.Context, shadowUserID string) ([]*links.Link, error) {
	var records []linkRecord

	err := g.db.WithContext(ctx).
		Where("shadow_user_id = ?", shadowUserID).
		Order("created_at ASC").
		Order("short_id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	owned := make([]*links.Link, 0, len(records))
	for i := range records {
		owned = append(owned, records[i].toLink())
	}

	return owned, nil
}

func (r *linkRecord) toLink() *links.Link {
	link := &links.Link{
		ShortID:      r.ShortID,
		Destination:  r.Destination,
		ShadowUserID: r.ShadowUserID,
		CreatedAt:    r.CreatedAt.UTC(),
	}

	if r.Description != nil {
		link.Description = *r.Description
	}

	return link
}

var _ links.Repository = (*GormStore)(nil)
