// Package repo – linked account repository
//
// CRUD persistence for Discord user ↔ Riot ID links. One row per user,
// replaced in place on re-link. Unlinking goes through PopLink, which returns
// the prior row and cascades the user's cached matches and rollups so no
// derived state survives the link.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"valbot/internal/domain"
)

// UpsertLink inserts or replaces the link row keyed by l.UserID.
func UpsertLink(ctx context.Context, db *gorm.DB, l *domain.LinkedAccount) error {
	l.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(l).Error
}

// PopLink reads and deletes the link for userID in one transaction, returning
// the prior value. Cached matches and rollups stored under the user's owner
// key are deleted with it. Returns ErrNotFound when the user has no link.
func PopLink(ctx context.Context, db *gorm.DB, userID string) (*domain.LinkedAccount, error) {
	var prior domain.LinkedAccount
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).First(&prior).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&domain.LinkedAccount{}).Error; err != nil {
			return err
		}
		owner := domain.UserOwnerKey(userID)
		if err := tx.Where("owner_key = ?", owner).Delete(&domain.CachedMatch{}).Error; err != nil {
			return err
		}
		return tx.Where("owner_key = ?", owner).Delete(&domain.PeriodRollup{}).Error
	})
	if err != nil {
		return nil, err
	}
	return &prior, nil
}

// GetLink fetches the link for userID, or ErrNotFound.
func GetLink(ctx context.Context, db *gorm.DB, userID string) (*domain.LinkedAccount, error) {
	var l domain.LinkedAccount
	if err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLinks returns every linked account ordered by last update ascending.
func ListLinks(ctx context.Context, db *gorm.DB) ([]domain.LinkedAccount, error) {
	var out []domain.LinkedAccount
	err := db.WithContext(ctx).
		Order("updated_at asc").
		Find(&out).Error
	return out, err
}
