package orderlens

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CacheEntry is the row layout of GormCache.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:64"`
	Value     []byte    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
}

func (CacheEntry) TableName() string {
	return "cache_entries"
}

// GormCache is a CacheBackend in a SQL table, shared by every process that
// points at the same database.
type GormCache struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormCache(db *gorm.DB, now func() time.Time) *GormCache {
	if now == nil {
		now = time.Now
	}
	return &GormCache{db: db, now: now}
}

func (c *GormCache) Migrate(ctx context.Context) error {
	return errors.Wrap(c.db.WithContext(ctx).AutoMigrate(&CacheEntry{}), "migrate cache table")
}

func (c *GormCache) Set(ctx context.Context, key string, value []byte, expiresAt time.Time) error {
	entry := CacheEntry{Key: key, Value: value, ExpiresAt: expiresAt.UTC()}
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error
	return errors.Wrap(err, "insert cache entry")
}

func (c *GormCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry CacheEntry
	err := c.db.WithContext(ctx).
		Clauses(clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Name: "key"}, Value: key},
			clause.Gt{Column: clause.Column{Name: "expires_at"}, Value: c.now().UTC()},
		}}).
		Limit(1).
		Find(&entry).Error
	if err != nil {
		return nil, false, errors.Wrap(err, "read cache entry")
	}
	if entry.Key == "" {
		return nil, false, nil
	}
	return entry.Value, true, nil
}

func (c *GormCache) Sweep(ctx context.Context) (int, error) {
	res := c.db.WithContext(ctx).Clauses(clause.Where{Exprs: []clause.Expression{
		clause.Lte{Column: clause.Column{Name: "expires_at"}, Value: c.now().UTC()},
	}}).Delete(&CacheEntry{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "sweep cache entries")
	}
	return int(res.RowsAffected), nil
}
