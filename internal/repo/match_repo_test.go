package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"valbot/internal/domain"
)

func intPtr(n int) *int { return &n }

func TestUpsertMatch_DuplicatePairIsUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := domain.AliasOwnerKey("smurf")

	first := &domain.CachedMatch{
		MatchID:  "match-1",
		OwnerKey: owner,
		Map:      "Ascent",
		Result:   intPtr(domain.ResultLoss),
	}
	if err := UpsertMatch(ctx, db, first); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// same pair again with corrected fields
	second := &domain.CachedMatch{
		MatchID:  "match-1",
		OwnerKey: owner,
		Map:      "Ascent",
		Result:   intPtr(domain.ResultWin),
		Kills:    intPtr(21),
	}
	if err := UpsertMatch(ctx, db, second); err != nil {
		t.Fatalf("upsert duplicate: %v", err)
	}

	if n, _ := CountMatches(ctx, db, owner); n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
	got, err := LatestMatch(ctx, db, owner)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got.Result == nil || *got.Result != domain.ResultWin {
		t.Errorf("result not updated: %+v", got.Result)
	}
	if got.Kills == nil || *got.Kills != 21 {
		t.Errorf("kills not updated: %+v", got.Kills)
	}
}

func TestUpsertMatch_OwnerKeysIsolated(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := domain.UserOwnerKey("u1")
	b := domain.AliasOwnerKey("smurf")
	for _, owner := range []string{a, b} {
		if err := UpsertMatch(ctx, db, &domain.CachedMatch{MatchID: "shared", OwnerKey: owner}); err != nil {
			t.Fatalf("insert %s: %v", owner, err)
		}
	}

	for _, owner := range []string{a, b} {
		if n, _ := CountMatches(ctx, db, owner); n != 1 {
			t.Errorf("owner %s rows = %d, want 1", owner, n)
		}
	}
}

func TestExistingMatchIDs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := domain.AliasOwnerKey("smurf")

	for _, id := range []string{"a", "b"} {
		if err := UpsertMatch(ctx, db, &domain.CachedMatch{MatchID: id, OwnerKey: owner}); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}

	got, err := ExistingMatchIDs(ctx, db, owner, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("existing: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %v", len(got), got)
	}
	if _, ok := got["c"]; ok {
		t.Error("uncached id reported as existing")
	}

	// other owners never leak in
	got, err = ExistingMatchIDs(ctx, db, domain.UserOwnerKey("u1"), []string{"a", "b"})
	if err != nil {
		t.Fatalf("existing other owner: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("cross-owner leak: %v", got)
	}

	// empty id list short-circuits
	got, err = ExistingMatchIDs(ctx, db, owner, nil)
	if err != nil || len(got) != 0 {
		t.Errorf("empty ids: got %v, %v", got, err)
	}
}

func TestLatestMatch_OrderAndNulls(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := domain.AliasOwnerKey("smurf")

	older := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	rows := []*domain.CachedMatch{
		{MatchID: "no-ts", OwnerKey: owner},
		{MatchID: "old", OwnerKey: owner, PlayedAt: &older},
		{MatchID: "new", OwnerKey: owner, PlayedAt: &newer},
	}
	for _, m := range rows {
		if err := UpsertMatch(ctx, db, m); err != nil {
			t.Fatalf("seed %s: %v", m.MatchID, err)
		}
	}

	got, err := LatestMatch(ctx, db, owner)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got.MatchID != "new" {
		t.Errorf("latest = %q, want %q", got.MatchID, "new")
	}
}

func TestLatestMatch_Empty(t *testing.T) {
	db := newTestDB(t)

	if _, err := LatestMatch(context.Background(), db, domain.UserOwnerKey("ghost")); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
