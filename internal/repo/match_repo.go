// Package repo – match cache repository
//
// Persistence primitives under the match dedup contract: at most one row per
// (match_id, owner_key). UpsertMatch is a single atomic statement, so
// concurrent writers (a command handler and the poll loop) can race on the
// same pair and still end up with one row. The "is this new" decision lives
// in the service layer (services.MatchService), built on ExistingMatchIDs.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"valbot/internal/domain"
)

// ExistingMatchIDs returns the subset of ids already cached for ownerKey,
// as a set. An empty id list yields an empty set without touching the DB.
func ExistingMatchIDs(ctx context.Context, db *gorm.DB, ownerKey string, ids []string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var existing []string
	err := db.WithContext(ctx).
		Model(&domain.CachedMatch{}).
		Where("owner_key = ? AND match_id IN ?", ownerKey, ids).
		Pluck("match_id", &existing).Error
	if err != nil {
		return nil, err
	}
	for _, id := range existing {
		out[id] = struct{}{}
	}
	return out, nil
}

// UpsertMatch inserts the row or, when (match_id, owner_key) already exists,
// updates the derived fields in place so a later fetch can correct them.
func UpsertMatch(ctx context.Context, db *gorm.DB, m *domain.CachedMatch) error {
	m.CachedAt = time.Now().UTC()
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "match_id"}, {Name: "owner_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"map", "mode", "team", "result",
				"kills", "deaths", "assists",
				"played_at", "raw", "cached_at",
			}),
		}).
		Create(m).Error
}

// LatestMatch returns the most recent cached match for ownerKey, ordered by
// played_at descending with cached_at descending as tiebreak, or ErrNotFound
// when nothing is cached. SQLite sorts NULL played_at last under DESC, so
// rows without a timestamp never shadow dated ones.
func LatestMatch(ctx context.Context, db *gorm.DB, ownerKey string) (*domain.CachedMatch, error) {
	var m domain.CachedMatch
	err := db.WithContext(ctx).
		Where("owner_key = ?", ownerKey).
		Order("played_at desc").
		Order("cached_at desc").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CountMatches returns the number of cached rows for ownerKey.
func CountMatches(ctx context.Context, db *gorm.DB, ownerKey string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.CachedMatch{}).
		Where("owner_key = ?", ownerKey).
		Count(&total).Error
	return total, err
}
