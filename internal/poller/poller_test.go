package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"valbot/internal/domain"
	"valbot/internal/metrics"
	"valbot/internal/repo"
	"valbot/internal/valorant"
)

func newPollerDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("poller_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedAlias(t *testing.T, db *gorm.DB, norm string) domain.Alias {
	t.Helper()
	a := &domain.Alias{
		AliasNorm: norm,
		Alias:     norm,
		Name:      "Player-" + norm,
		Tag:       "KR1",
		Region:    "kr",
		Puuid:     "puuid-" + norm,
	}
	if err := repo.UpsertAlias(context.Background(), db, a); err != nil {
		t.Fatalf("seed alias %s: %v", norm, err)
	}
	return *a
}

func latestPayload(id string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"metadata":{"matchid":%q,"map":"Ascent"}}`, id))
}

// fakeFetcher serves a scripted latest match per alias name.
type fakeFetcher struct {
	latest map[string]json.RawMessage // keyed by player name
	errs   map[string]error
	calls  int
}

func (f *fakeFetcher) GetMatches(_ context.Context, _, name, _, _ string, _ int) ([]json.RawMessage, error) {
	f.calls++
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	raw, ok := f.latest[name]
	if !ok {
		return nil, nil
	}
	return []json.RawMessage{raw}, nil
}

// slowFetcher delays every fetch, keeping a tick in flight.
type slowFetcher struct {
	fakeFetcher
	delay time.Duration
}

func (s *slowFetcher) GetMatches(ctx context.Context, region, name, tag, mode string, size int) ([]json.RawMessage, error) {
	time.Sleep(s.delay)
	return s.fakeFetcher.GetMatches(ctx, region, name, tag, mode, size)
}

// fakeDeduper returns a scripted count per match id and records the calls.
type fakeDeduper struct {
	counts map[string]int // keyed by match id
	stored []string
}

func (f *fakeDeduper) StoreBatch(_ context.Context, _, _ string, payloads []json.RawMessage) (int, error) {
	var match map[string]any
	if err := json.Unmarshal(payloads[0], &match); err != nil {
		return 0, err
	}
	id := valorant.MatchID(match)
	f.stored = append(f.stored, id)
	count, ok := f.counts[id]
	if !ok {
		count = 1
	}
	return count, nil
}

// fakeNotifier records every dispatched alert.
type fakeNotifier struct {
	sent []string // match ids
	err  error
}

func (f *fakeNotifier) NotifyMatch(_ context.Context, _ domain.Alias, _ map[string]any, matchID string) error {
	f.sent = append(f.sent, matchID)
	return f.err
}

func newTestPoller(db *gorm.DB, fetch *fakeFetcher, dedup *fakeDeduper, notify *fakeNotifier) *Poller {
	return New(db, fetch, dedup, notify, time.Hour, 0)
}

func TestTick_NewMatchNotifies(t *testing.T) {
	db := newPollerDB(t)
	a := seedAlias(t, db, "smurf")

	fetch := &fakeFetcher{latest: map[string]json.RawMessage{a.Name: latestPayload("m1")}}
	dedup := &fakeDeduper{}
	notify := &fakeNotifier{}
	p := newTestPoller(db, fetch, dedup, notify)

	p.tick(context.Background())

	if len(dedup.stored) != 1 || dedup.stored[0] != "m1" {
		t.Errorf("stored = %v, want [m1]", dedup.stored)
	}
	if len(notify.sent) != 1 || notify.sent[0] != "m1" {
		t.Errorf("sent = %v, want [m1]", notify.sent)
	}
}

func TestTick_UnchangedMatchSkipsStore(t *testing.T) {
	db := newPollerDB(t)
	a := seedAlias(t, db, "smurf")

	fetch := &fakeFetcher{latest: map[string]json.RawMessage{a.Name: latestPayload("m1")}}
	dedup := &fakeDeduper{}
	notify := &fakeNotifier{}
	p := newTestPoller(db, fetch, dedup, notify)
	ctx := context.Background()

	p.tick(ctx)
	p.tick(ctx) // same latest match again

	if len(dedup.stored) != 1 {
		t.Errorf("stored = %v, want a single write", dedup.stored)
	}
	if len(notify.sent) != 1 {
		t.Errorf("sent = %v, want a single alert", notify.sent)
	}
}

func TestTick_AlreadyCachedSuppressesAlert(t *testing.T) {
	db := newPollerDB(t)
	a := seedAlias(t, db, "smurf")

	fetch := &fakeFetcher{latest: map[string]json.RawMessage{a.Name: latestPayload("m1")}}
	dedup := &fakeDeduper{counts: map[string]int{"m1": 0}} // someone else persisted it
	notify := &fakeNotifier{}
	p := newTestPoller(db, fetch, dedup, notify)
	ctx := context.Background()

	p.tick(ctx)
	if len(notify.sent) != 0 {
		t.Errorf("sent = %v, want suppressed", notify.sent)
	}

	// the mark advanced anyway: the next tick does not re-store
	p.tick(ctx)
	if len(dedup.stored) != 1 {
		t.Errorf("stored = %v, want a single write", dedup.stored)
	}
}

func TestTick_SeedsFromCachedLatest(t *testing.T) {
	db := newPollerDB(t)
	a := seedAlias(t, db, "smurf")
	ctx := context.Background()

	// the latest match is already in the cache from a previous process run
	if err := repo.UpsertMatch(ctx, db, &domain.CachedMatch{MatchID: "m1", OwnerKey: a.OwnerKey()}); err != nil {
		t.Fatalf("seed match: %v", err)
	}

	fetch := &fakeFetcher{latest: map[string]json.RawMessage{a.Name: latestPayload("m1")}}
	dedup := &fakeDeduper{}
	notify := &fakeNotifier{}
	p := newTestPoller(db, fetch, dedup, notify)

	p.tick(ctx)

	if len(dedup.stored) != 0 {
		t.Errorf("stored = %v, want none (seeded mark matches)", dedup.stored)
	}
	if len(notify.sent) != 0 {
		t.Errorf("sent = %v, want none", notify.sent)
	}
}

func TestTick_AliasFailureIsolated(t *testing.T) {
	db := newPollerDB(t)
	bad := seedAlias(t, db, "bad")
	good := seedAlias(t, db, "good")

	fetch := &fakeFetcher{
		latest: map[string]json.RawMessage{good.Name: latestPayload("m-good")},
		errs:   map[string]error{bad.Name: errors.New("upstream exploded")},
	}
	dedup := &fakeDeduper{}
	notify := &fakeNotifier{}
	p := newTestPoller(db, fetch, dedup, notify)

	p.tick(context.Background())

	if len(notify.sent) != 1 || notify.sent[0] != "m-good" {
		t.Errorf("sent = %v, want [m-good]", notify.sent)
	}
}

func TestTick_NotifyFailureDoesNotPoisonMark(t *testing.T) {
	db := newPollerDB(t)
	a := seedAlias(t, db, "smurf")

	fetch := &fakeFetcher{latest: map[string]json.RawMessage{a.Name: latestPayload("m1")}}
	dedup := &fakeDeduper{}
	notify := &fakeNotifier{err: errors.New("discord down")}
	p := newTestPoller(db, fetch, dedup, notify)
	ctx := context.Background()

	p.tick(ctx)
	p.tick(ctx)

	// the alert was lost but the mark advanced: no duplicate announcement storm
	if len(dedup.stored) != 1 {
		t.Errorf("stored = %v, want a single write", dedup.stored)
	}
}

func TestTick_MalformedLatestSkipped(t *testing.T) {
	db := newPollerDB(t)
	a := seedAlias(t, db, "smurf")

	fetch := &fakeFetcher{latest: map[string]json.RawMessage{a.Name: json.RawMessage(`{"broken`)}}
	dedup := &fakeDeduper{}
	notify := &fakeNotifier{}
	p := newTestPoller(db, fetch, dedup, notify)

	p.tick(context.Background())

	if len(dedup.stored) != 0 || len(notify.sent) != 0 {
		t.Errorf("malformed payload reached store/notify: %v / %v", dedup.stored, notify.sent)
	}
}

func TestStartStop(t *testing.T) {
	db := newPollerDB(t)
	fetch := &fakeFetcher{}
	p := newTestPoller(db, fetch, &fakeDeduper{}, &fakeNotifier{})

	p.Start(context.Background())
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestStop_WaitsForFirstTick(t *testing.T) {
	db := newPollerDB(t)
	a := seedAlias(t, db, "smurf")

	fetch := &slowFetcher{
		fakeFetcher: fakeFetcher{latest: map[string]json.RawMessage{a.Name: latestPayload("m1")}},
		delay:       100 * time.Millisecond,
	}
	dedup := &fakeDeduper{}
	p := New(db, fetch, dedup, &fakeNotifier{}, time.Hour, 0)

	// Stop immediately after Start: it must still wait out the first tick
	p.Start(context.Background())
	p.Stop()

	if len(dedup.stored) != 1 {
		t.Errorf("stored = %v, want the first tick's write before Stop returns", dedup.stored)
	}
}

func TestTick_CountsIdleTicks(t *testing.T) {
	db := newPollerDB(t) // no aliases registered
	p := newTestPoller(db, &fakeFetcher{}, &fakeDeduper{}, &fakeNotifier{})

	before := testutil.ToFloat64(metrics.PollTicks)
	p.tick(context.Background())
	if got := testutil.ToFloat64(metrics.PollTicks) - before; got != 1 {
		t.Errorf("tick delta = %v, want 1", got)
	}
}
