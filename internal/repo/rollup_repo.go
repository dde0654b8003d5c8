// Package repo – period rollup repository
//
// Aggregate win/loss and combat totals keyed by (period, owner_key).
// AddToRollup is a single upsert with additive assignments, so concurrent
// increments from different writers never lose updates.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"valbot/internal/domain"
)

// RollupDelta is one batch's contribution to a rollup row.
type RollupDelta struct {
	Wins      int
	Losses    int
	Kills     int
	Deaths    int
	Assists   int
	RankDelta int
}

// AddToRollup adds delta to the (period, ownerKey) rollup, creating the row
// on first contribution.
func AddToRollup(ctx context.Context, db *gorm.DB, period, ownerKey string, delta RollupDelta) error {
	row := &domain.PeriodRollup{
		Period:    period,
		OwnerKey:  ownerKey,
		Wins:      delta.Wins,
		Losses:    delta.Losses,
		Kills:     delta.Kills,
		Deaths:    delta.Deaths,
		Assists:   delta.Assists,
		RankDelta: delta.RankDelta,
		UpdatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "period"}, {Name: "owner_key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"wins":       gorm.Expr("wins + ?", delta.Wins),
				"losses":     gorm.Expr("losses + ?", delta.Losses),
				"kills":      gorm.Expr("kills + ?", delta.Kills),
				"deaths":     gorm.Expr("deaths + ?", delta.Deaths),
				"assists":    gorm.Expr("assists + ?", delta.Assists),
				"rank_delta": gorm.Expr("rank_delta + ?", delta.RankDelta),
				"updated_at": row.UpdatedAt,
			}),
		}).
		Create(row).Error
}

// GetRollup fetches the rollup for (period, ownerKey), or ErrNotFound.
func GetRollup(ctx context.Context, db *gorm.DB, period, ownerKey string) (*domain.PeriodRollup, error) {
	var r domain.PeriodRollup
	if err := db.WithContext(ctx).
		Where("period = ? AND owner_key = ?", period, ownerKey).
		First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRollups returns every rollup for ownerKey, newest period first.
func ListRollups(ctx context.Context, db *gorm.DB, ownerKey string) ([]domain.PeriodRollup, error) {
	var out []domain.PeriodRollup
	err := db.WithContext(ctx).
		Where("owner_key = ?", ownerKey).
		Order("period desc").
		Find(&out).Error
	return out, err
}
