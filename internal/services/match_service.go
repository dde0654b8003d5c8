// Package services – MatchService
//
// The deduplication engine: the one place that decides whether a fetched
// match has already been recorded for an owner. Every payload is written via
// upsert so derived fields can be corrected by later fetches, but the
// returned count covers only (match id, owner key) pairs that did not exist
// before the call. That count is the signal the alert poll loop uses to
// decide whether to announce anything.
//
// Note the deliberate asymmetry: an upsert that only changes the K/D/A line
// or result on an already-cached match id is NOT counted as new. Consumers
// that need "rows whose content changed" must diff rows themselves.
package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"valbot/internal/domain"
	"valbot/internal/repo"
	"valbot/internal/valorant"
)

// rollupPeriod formats the day stamp a match contributes to.
const rollupPeriod = "2006-01-02"

// MatchService persists fetched match batches and reports how many were
// genuinely new.
type MatchService struct {
	DB *gorm.DB
}

// NewMatchService constructs a MatchService over db.
func NewMatchService(db *gorm.DB) *MatchService {
	return &MatchService{DB: db}
}

// StoreBatch upserts every well-formed payload under ownerKey and returns the
// number of match identifiers that were not previously cached for that owner.
//
//   - Payloads that fail to decode or lack a match identifier are skipped,
//     never aborting the batch.
//   - A missing participant or team block degrades to null K/D/A and null
//     result on the row.
//   - The same match id cached under a different owner key still counts as
//     new here: the dedup key is the pair.
//   - An empty batch returns 0 without touching the store.
//
// Each row write is one atomic upsert; a failed write is logged, excluded
// from the count, and surfaced as a joined ErrPersistence at the end.
func (s *MatchService) StoreBatch(ctx context.Context, ownerKey, puuid string, payloads []json.RawMessage) (int, error) {
	type record struct {
		id    string
		match map[string]any
		raw   json.RawMessage
	}

	records := make([]record, 0, len(payloads))
	ids := make([]string, 0, len(payloads))
	seen := map[string]struct{}{}
	for _, raw := range payloads {
		var match map[string]any
		if err := json.Unmarshal(raw, &match); err != nil {
			log.Warn().Str("owner", ownerKey).Err(err).Msg("skipping undecodable match payload")
			continue
		}
		id := valorant.MatchID(match)
		if id == "" {
			log.Warn().Str("owner", ownerKey).Msg("skipping match payload without identifier")
			continue
		}
		records = append(records, record{id: id, match: match, raw: raw})
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if len(records) == 0 {
		return 0, nil
	}

	existing, err := repo.ExistingMatchIDs(ctx, s.DB, ownerKey, ids)
	if err != nil {
		return 0, fmt.Errorf("%w: querying cached match ids: %v", ErrPersistence, err)
	}

	var (
		newCount int
		counted  = map[string]struct{}{}
		deltas   = map[string]repo.RollupDelta{}
		writeErr error
	)
	for _, rec := range records {
		row := buildRow(ownerKey, puuid, rec.id, rec.match, rec.raw)
		if err := repo.UpsertMatch(ctx, s.DB, row); err != nil {
			log.Error().Str("owner", ownerKey).Str("match", rec.id).Err(err).
				Msg("match upsert failed")
			if writeErr == nil {
				writeErr = fmt.Errorf("%w: %v", ErrPersistence, err)
			}
			continue
		}

		_, existed := existing[rec.id]
		_, already := counted[rec.id]
		if existed || already {
			continue
		}
		counted[rec.id] = struct{}{}
		newCount++

		// Each match contributes to the rollup of its own day.
		day := row.CachedAt.Format(rollupPeriod)
		if row.PlayedAt != nil {
			day = row.PlayedAt.Format(rollupPeriod)
		}
		delta := deltas[day]
		if won, ok := row.Won(); ok {
			if won {
				delta.Wins++
			} else {
				delta.Losses++
			}
		}
		if row.Kills != nil {
			delta.Kills += *row.Kills
		}
		if row.Deaths != nil {
			delta.Deaths += *row.Deaths
		}
		if row.Assists != nil {
			delta.Assists += *row.Assists
		}
		deltas[day] = delta
	}

	// Rollups only accumulate counted matches, so replays never inflate them.
	// A rollup write failure is logged but never fails the batch.
	for day, delta := range deltas {
		if err := repo.AddToRollup(ctx, s.DB, day, ownerKey, delta); err != nil {
			log.Error().Str("owner", ownerKey).Str("period", day).Err(err).
				Msg("rollup update failed")
		}
	}

	return newCount, writeErr
}

// Latest returns the most recent cached match for ownerKey, or nil when
// nothing is cached yet.
func (s *MatchService) Latest(ctx context.Context, ownerKey string) (*domain.CachedMatch, error) {
	m, err := repo.LatestMatch(ctx, s.DB, ownerKey)
	if err != nil {
		if err == repo.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return m, nil
}

// buildRow derives a CachedMatch row from one payload, degrading any missing
// block to nulls rather than failing.
func buildRow(ownerKey, puuid, id string, match map[string]any, raw json.RawMessage) *domain.CachedMatch {
	meta := valorant.Metadata(match)
	row := &domain.CachedMatch{
		MatchID:  id,
		OwnerKey: ownerKey,
		Map:      valorant.MetadataLabel(meta, "map", ""),
		Mode:     valorant.MetadataLabel(meta, "mode", ""),
		PlayedAt: valorant.PlayedAt(match),
		Raw:      string(raw),
	}

	player := valorant.FindPlayer(match, puuid, "", "")
	if player == nil {
		return row
	}
	row.Kills, row.Deaths, row.Assists = valorant.PlayerStats(player)
	row.Team = valorant.PlayerTeam(player)

	if result := valorant.TeamResult(match["teams"], row.Team); result != nil {
		value := domain.ResultLoss
		if *result {
			value = domain.ResultWin
		}
		row.Result = &value
	}
	return row
}
