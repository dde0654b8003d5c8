// Package poller implements the alert poll loop: a fixed-interval scan of all
// registered aliases that fetches each alias' newest match and notifies the
// registered alert channels when the dedup engine confirms it is new.
//
// Ticks are strictly sequential: one goroutine drives a ticker, so a tick can
// never overlap the previous one. Per-alias failures are isolated to the
// alias, and a short delay between aliases keeps a single tick from bursting
// the upstream API.
package poller

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"valbot/internal/domain"
	"valbot/internal/metrics"
	"valbot/internal/repo"
	"valbot/internal/valorant"
)

// Fetcher fetches recent match payloads for a player.
// *valorant.Client satisfies it.
type Fetcher interface {
	GetMatches(ctx context.Context, region, name, tag, mode string, size int) ([]json.RawMessage, error)
}

// Deduper persists a match batch and reports how many records were new.
// *services.MatchService satisfies it.
type Deduper interface {
	StoreBatch(ctx context.Context, ownerKey, puuid string, payloads []json.RawMessage) (int, error)
}

// Notifier fans a new match out to the registered alert destinations.
// Per-destination failures are the notifier's problem; the poll loop only
// logs the returned error.
type Notifier interface {
	NotifyMatch(ctx context.Context, alias domain.Alias, match map[string]any, matchID string) error
}

// Poller drives the alert poll loop.
type Poller struct {
	db     *gorm.DB
	fetch  Fetcher
	dedup  Deduper
	notify Notifier

	interval   time.Duration
	aliasDelay time.Duration
	logger     zerolog.Logger

	// lastSeen maps owner key to the newest known match id. Touched only by
	// the single tick goroutine after seeding.
	lastSeen map[string]string
	seeded   bool

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// New constructs a Poller. interval is the tick cadence; aliasDelay is the
// pause inserted between aliases within one tick.
func New(db *gorm.DB, fetch Fetcher, dedup Deduper, notify Notifier, interval, aliasDelay time.Duration) *Poller {
	return &Poller{
		db:         db,
		fetch:      fetch,
		dedup:      dedup,
		notify:     notify,
		interval:   interval,
		aliasDelay: aliasDelay,
		logger:     log.With().Str("component", "poller").Logger(),
		lastSeen:   make(map[string]string),
		stop:       make(chan struct{}),
	}
}

// Start launches the loop goroutine and returns. The loop runs until ctx is
// canceled or Stop is called; an immediate first tick seeds the last-seen
// marks before the ticker takes over. The WaitGroup registration happens here,
// not on the loop goroutine, so a Stop racing a fresh Start still waits for
// the first tick.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.run(ctx)
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()

	p.logger.Info().Dur("interval", p.interval).Msg("alert poll loop starting")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("alert poll loop stopped (context canceled)")
			return
		case <-p.stop:
			p.logger.Info().Msg("alert poll loop stopped")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// Stop signals the loop to exit and waits for the in-flight tick to finish.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

// tick processes every registered alias once. Counted on entry, so idle and
// aborted ticks show up in the metric too.
func (p *Poller) tick(ctx context.Context) {
	metrics.PollTicks.Inc()
	tickLog := p.logger.With().Str("tick", uuid.NewString()).Logger()

	if !p.seeded {
		p.seedLastSeen(ctx, tickLog)
	}

	aliases, err := repo.ListAliases(ctx, p.db)
	if err != nil {
		tickLog.Error().Err(err).Msg("listing aliases failed, skipping tick")
		return
	}
	if len(aliases) == 0 {
		return
	}

	for i, alias := range aliases {
		if ctx.Err() != nil {
			return
		}
		if err := p.processAlias(ctx, alias); err != nil {
			metrics.PollAliasFailures.Inc()
			tickLog.Error().Str("owner", alias.OwnerKey()).Err(err).
				Msg("alias processing failed")
		}
		if i < len(aliases)-1 && p.aliasDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.aliasDelay):
			}
		}
	}
}

// seedLastSeen initializes the in-memory marks from the newest cached match
// per alias. Runs once, on the first tick.
func (p *Poller) seedLastSeen(ctx context.Context, logger zerolog.Logger) {
	aliases, err := repo.ListAliases(ctx, p.db)
	if err != nil {
		logger.Error().Err(err).Msg("seeding last-seen marks failed")
		return
	}
	for _, alias := range aliases {
		owner := alias.OwnerKey()
		latest, err := repo.LatestMatch(ctx, p.db, owner)
		if err != nil {
			continue // nothing cached yet
		}
		p.lastSeen[owner] = latest.MatchID
	}
	p.seeded = true
	logger.Info().Int("marks", len(p.lastSeen)).Msg("seeded last-seen marks")
}

// processAlias fetches the alias' newest match and decides whether to notify:
// unchanged mark → nothing; dedup count 0 → advance mark, suppress (someone
// else already persisted it); count 1 → advance mark and notify.
func (p *Poller) processAlias(ctx context.Context, alias domain.Alias) error {
	owner := alias.OwnerKey()

	payloads, err := p.fetch.GetMatches(ctx, alias.Region, alias.Name, alias.Tag, "", 1)
	if err != nil {
		return err
	}
	if len(payloads) == 0 {
		return nil
	}

	var match map[string]any
	if err := json.Unmarshal(payloads[0], &match); err != nil {
		p.logger.Warn().Str("owner", owner).Err(err).Msg("undecodable latest match payload")
		return nil
	}
	matchID := valorant.MatchID(match)
	if matchID == "" {
		return nil
	}

	if p.lastSeen[owner] == matchID {
		return nil
	}

	newCount, err := p.dedup.StoreBatch(ctx, owner, alias.Puuid, payloads[:1])
	if err != nil {
		return err
	}

	p.lastSeen[owner] = matchID
	if newCount == 0 {
		// Already persisted by another path (e.g. a user-triggered lookup);
		// advancing the mark without notifying avoids a re-announcement.
		p.logger.Debug().Str("owner", owner).Str("match", matchID).
			Msg("match already cached, alert suppressed")
		return nil
	}

	if err := p.notify.NotifyMatch(ctx, alias, match, matchID); err != nil {
		p.logger.Error().Str("owner", owner).Str("match", matchID).Err(err).
			Msg("alert dispatch failed")
	}
	return nil
}
