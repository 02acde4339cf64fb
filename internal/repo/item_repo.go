package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Mts-Potter/literary-forge/internal/domain"
	"github.com/Mts-Potter/literary-forge/internal/textstats"
)

// ItemQuery narrows ListUnattemptedItems.
type ItemQuery struct {
	UserID     string
	Collection string
	ExcludeIDs []string
	Limit      int
}

// GetItem fetches a passage by id or ErrNotFound.
func GetItem(ctx context.Context, db *gorm.DB, id string) (*domain.Item, error) {
	var it domain.Item
	if err := db.WithContext(ctx).Where("id = ?", id).First(&it).Error; err != nil {
		return nil, err
	}
	return &it, nil
}

// GetItemsByIDs returns the passages with the given ids keyed by id.
func GetItemsByIDs(ctx context.Context, db *gorm.DB, ids []string) (map[string]domain.Item, error) {
	out := make(map[string]domain.Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var items []domain.Item
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, it := range items {
		out[it.ID] = it
	}
	return out, nil
}

// CreateItem inserts a passage. An empty ID is replaced with a UUID, and
// passages without metrics get the ones computable from the text alone.
func CreateItem(ctx context.Context, db *gorm.DB, it *domain.Item) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now().UTC()
	}
	if it.Metrics.Data() == (domain.StyleMetrics{}) {
		it.Metrics = datatypes.NewJSONType(textstats.Measure(it.Content))
	}
	return db.WithContext(ctx).Create(it).Error
}

// ListUnattemptedItems returns up to Limit passages the user has no card
// for, in library order (created_at, id).
func ListUnattemptedItems(ctx context.Context, db *gorm.DB, q ItemQuery) ([]domain.Item, error) {
	tx := db.WithContext(ctx).
		Model(&domain.Item{}).
		Where("NOT EXISTS (SELECT 1 FROM cards WHERE cards.item_id = items.id AND cards.user_id = ?)", q.UserID)
	if q.Collection != "" {
		tx = tx.Where("items.collection_id = ?", q.Collection)
	}
	if len(q.ExcludeIDs) > 0 {
		tx = tx.Where("items.id NOT IN ?", q.ExcludeIDs)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var out []domain.Item
	err := tx.Order("items.created_at ASC").Order("items.id ASC").Find(&out).Error
	return out, err
}

// CountItems returns the number of passages, optionally within a collection.
func CountItems(ctx context.Context, db *gorm.DB, collection string) (int64, error) {
	tx := db.WithContext(ctx).Model(&domain.Item{})
	if collection != "" {
		tx = tx.Where("collection_id = ?", collection)
	}
	var n int64
	err := tx.Count(&n).Error
	return n, err
}
