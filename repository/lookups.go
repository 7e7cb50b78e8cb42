package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/krshsl/rentdesk/models"
	"gorm.io/gorm"
)

// LookupFilter narrows a lookup listing
type LookupFilter struct {
	ListParams
	ParentID string
}

func (r *GORMRepository) ListLookups(ctx context.Context, kind models.LookupKind, f LookupFilter) ([]models.Lookup, int64, error) {
	var items []models.Lookup
	query := r.db.WithContext(ctx).Table(kind.Table).Scopes(searchColumns(f.Search, "name", "description"))
	if f.ParentID != "" {
		query = query.Where("parent_id = ?", f.ParentID)
	}
	total, err := findPage(query, f.ListParams, "name", &items)
	if err != nil {
		slog.Error("Failed to list lookups", "error", err, "kind", kind.Slug)
		return nil, 0, err
	}
	return items, total, nil
}

func (r *GORMRepository) GetLookup(ctx context.Context, kind models.LookupKind, id string) (*models.Lookup, error) {
	return getLookup(r.db.WithContext(ctx), kind, id)
}

func getLookup(tx *gorm.DB, kind models.LookupKind, id string) (*models.Lookup, error) {
	var item models.Lookup
	if err := tx.Table(kind.Table).Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get lookup", "error", err, "kind", kind.Slug, "id", id)
		return nil, err
	}
	return &item, nil
}

// GetLookupsByIDs loads the rows of one kind in a single query; unknown ids are skipped
func (r *GORMRepository) GetLookupsByIDs(ctx context.Context, kind models.LookupKind, ids []string) ([]models.Lookup, error) {
	var items []models.Lookup
	if len(ids) == 0 {
		return items, nil
	}
	if err := r.db.WithContext(ctx).Table(kind.Table).Where("id IN ?", ids).Order("name").Find(&items).Error; err != nil {
		slog.Error("Failed to get lookups by ids", "error", err, "kind", kind.Slug)
		return nil, err
	}
	return items, nil
}

// LookupExists reports whether id is a row of the kind's table
func (r *GORMRepository) LookupExists(ctx context.Context, kind models.LookupKind, id string) (bool, error) {
	n, err := countWhere(r.db.WithContext(ctx), kind.Table, "id", id)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateLookup checks name uniqueness (within the parent for parented kinds) and inserts
func (r *GORMRepository) CreateLookup(ctx context.Context, kind models.LookupKind, item *models.Lookup) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookupNameFree(tx, kind, item); err != nil {
			return err
		}
		return translateError(tx.Table(kind.Table).Create(item).Error)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return duplicateErr(kind.Label, "name")
		}
		slog.Error("Failed to create lookup", "error", err, "kind", kind.Slug)
		return err
	}
	slog.Info("Lookup created", "kind", kind.Slug, "id", item.ID, "name", item.Name)
	return nil
}

func (r *GORMRepository) UpdateLookup(ctx context.Context, kind models.LookupKind, item *models.Lookup) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookupNameFree(tx, kind, item); err != nil {
			return err
		}
		return translateError(tx.Table(kind.Table).Where("id = ?", item.ID).Updates(map[string]interface{}{
			"name":        item.Name,
			"description": item.Description,
			"parent_id":   item.ParentID,
			"amount":      item.Amount,
			"updated_at":  time.Now(),
		}).Error)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return duplicateErr(kind.Label, "name")
		}
		slog.Error("Failed to update lookup", "error", err, "kind", kind.Slug, "id", item.ID)
		return err
	}
	slog.Info("Lookup updated", "kind", kind.Slug, "id", item.ID)
	return nil
}

// DeleteLookup refuses to remove rows that are still referenced
func (r *GORMRepository) DeleteLookup(ctx context.Context, kind models.LookupKind, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inUse, err := referenced(tx, id, kind.References...)
		if err != nil {
			return err
		}
		if inUse {
			return ErrInUse
		}
		return translateError(tx.Table(kind.Table).Where("id = ?", id).Delete(&models.Lookup{}).Error)
	})
	if err != nil {
		if errors.Is(err, ErrInUse) {
			return inUseErr(kind.Label)
		}
		slog.Error("Failed to delete lookup", "error", err, "kind", kind.Slug, "id", id)
		return err
	}
	slog.Info("Lookup deleted", "kind", kind.Slug, "id", id)
	return nil
}

func lookupNameFree(tx *gorm.DB, kind models.LookupKind, item *models.Lookup) error {
	query := tx.Table(kind.Table).Where("LOWER(name) = LOWER(?)", item.Name)
	if kind.ParentSlug != "" {
		if item.ParentID == nil {
			query = query.Where("parent_id IS NULL")
		} else {
			query = query.Where("parent_id = ?", *item.ParentID)
		}
	}
	if item.ID != "" {
		query = query.Where("id <> ?", item.ID)
	}
	var n int64
	if err := query.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicate
	}
	return nil
}
