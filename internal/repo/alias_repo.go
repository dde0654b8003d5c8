// Package repo – alias repository
//
// CRUD persistence for registered aliases. Aliases are keyed by their
// normalized form, so an upsert with the same normalized alias replaces the
// previous registration in place (ON CONFLICT DO UPDATE), never duplicating.
//
// Error semantics:
//   - When an alias is not found, functions return ErrNotFound
//     (an alias of gorm.ErrRecordNotFound).
//   - On DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"valbot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer.
var ErrNotFound = gorm.ErrRecordNotFound

// SearchLimit is both the default and the hard ceiling for SearchAliases.
const SearchLimit = 25

// UpsertAlias inserts or replaces the alias row keyed by a.AliasNorm.
// CreatedAt is stamped here so callers only fill the identity fields.
func UpsertAlias(ctx context.Context, db *gorm.DB, a *domain.Alias) error {
	a.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "alias_norm"}},
			UpdateAll: true,
		}).
		Create(a).Error
}

// RemoveAlias deletes the alias row keyed by aliasNorm. It returns
// ErrNotFound when no such alias exists.
func RemoveAlias(ctx context.Context, db *gorm.DB, aliasNorm string) error {
	res := db.WithContext(ctx).
		Where("alias_norm = ?", aliasNorm).
		Delete(&domain.Alias{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetAlias fetches a single alias by its normalized form, or ErrNotFound.
func GetAlias(ctx context.Context, db *gorm.DB, aliasNorm string) (*domain.Alias, error) {
	var a domain.Alias
	if err := db.WithContext(ctx).
		Where("alias_norm = ?", aliasNorm).
		First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAliases returns every registered alias ordered alphabetically by the
// normalized alias. It returns an empty slice when nothing is registered.
func ListAliases(ctx context.Context, db *gorm.DB) ([]domain.Alias, error) {
	var out []domain.Alias
	err := db.WithContext(ctx).
		Order("alias_norm asc").
		Find(&out).Error
	return out, err
}

// SearchAliases returns aliases whose alias, name, or tag contains query
// (case-insensitive substring), ordered alphabetically and capped at limit.
// limit <= 0 falls back to SearchLimit; values above SearchLimit are clamped.
// An empty query matches everything.
func SearchAliases(ctx context.Context, db *gorm.DB, query string, limit int) ([]domain.Alias, error) {
	if limit <= 0 || limit > SearchLimit {
		limit = SearchLimit
	}

	tx := db.WithContext(ctx).Order("alias_norm asc").Limit(limit)
	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		pattern := "%" + q + "%"
		tx = tx.Where(
			"alias_norm LIKE ? OR lower(name) LIKE ? OR lower(tag) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var out []domain.Alias
	err := tx.Find(&out).Error
	return out, err
}
