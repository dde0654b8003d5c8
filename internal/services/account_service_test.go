package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"valbot/internal/domain"
	"valbot/internal/valorant"
)

// fakeResolver satisfies AccountResolver with canned accounts.
type fakeResolver struct {
	accounts map[string]*valorant.Account // keyed "name#tag"
	calls    int
}

func (f *fakeResolver) GetAccount(_ context.Context, name, tag string) (*valorant.Account, error) {
	f.calls++
	if acc, ok := f.accounts[name+"#"+tag]; ok {
		return acc, nil
	}
	return nil, valorant.ErrNotFound
}

func newAccountService(t *testing.T, resolver *fakeResolver) *AccountService {
	t.Helper()
	return NewAccountService(newServiceDB(t), resolver)
}

func TestNormalizeAlias(t *testing.T) {
	if got := NormalizeAlias("  SMURF  "); got != "smurf" {
		t.Errorf("NormalizeAlias = %q", got)
	}
	if NormalizeAlias("Smurf") != NormalizeAlias("sMuRf") {
		t.Error("case variants must fold to the same key")
	}
}

func TestNormRegion(t *testing.T) {
	cases := map[string]string{
		"KR": "kr", " eu ": "eu", "latam": "latam",
		"": "ap", "mars": "ap", "AP": "ap",
	}
	for in, want := range cases {
		if got := NormRegion(in); got != want {
			t.Errorf("NormRegion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLink(t *testing.T) {
	resolver := &fakeResolver{accounts: map[string]*valorant.Account{
		"Player#KR1": {Puuid: "p1", Name: "Player", Tag: "KR1"},
	}}
	svc := newAccountService(t, resolver)
	ctx := context.Background()

	link, err := svc.Link(ctx, "u1", "Player", "KR1", "KR")
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if link.Region != "kr" {
		t.Errorf("region = %q, want kr", link.Region)
	}

	got, err := svc.GetLink(ctx, "u1")
	if err != nil {
		t.Fatalf("get link: %v", err)
	}
	if got.RiotID() != "Player#KR1" {
		t.Errorf("RiotID = %q", got.RiotID())
	}
}

func TestLink_UnknownAccount(t *testing.T) {
	svc := newAccountService(t, &fakeResolver{})

	if _, err := svc.Link(context.Background(), "u1", "Ghost", "XX1", "ap"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("err = %v, want ErrAccountNotFound", err)
	}
	// nothing may be stored after a failed resolve
	if _, err := svc.GetLink(context.Background(), "u1"); !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("link stored despite failed resolve: err = %v", err)
	}
}

func TestLink_EmptyRiotID(t *testing.T) {
	svc := newAccountService(t, &fakeResolver{})

	if _, err := svc.Link(context.Background(), "u1", " ", "KR1", "ap"); !errors.Is(err, ErrEmptyRiotID) {
		t.Errorf("err = %v, want ErrEmptyRiotID", err)
	}
}

func TestUnlink(t *testing.T) {
	resolver := &fakeResolver{accounts: map[string]*valorant.Account{
		"Player#KR1": {Puuid: "p1"},
	}}
	svc := newAccountService(t, resolver)
	ctx := context.Background()

	if _, err := svc.Link(ctx, "u1", "Player", "KR1", "ap"); err != nil {
		t.Fatalf("link: %v", err)
	}
	prior, err := svc.Unlink(ctx, "u1")
	if err != nil {
		t.Fatalf("unlink: %v", err)
	}
	if prior.Name != "Player" {
		t.Errorf("prior = %+v", prior)
	}
	if _, err := svc.Unlink(ctx, "u1"); !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("second unlink err = %v, want ErrLinkNotFound", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := newAccountService(t, &fakeResolver{})
	ctx := context.Background()

	if _, err := svc.Register(ctx, "  ", "Player", "KR1", "ap"); !errors.Is(err, ErrEmptyAlias) {
		t.Errorf("blank alias err = %v, want ErrEmptyAlias", err)
	}
	if _, err := svc.Register(ctx, strings.Repeat("x", MaxAliasLen+1), "Player", "KR1", "ap"); !errors.Is(err, ErrAliasTooLong) {
		t.Errorf("long alias err = %v, want ErrAliasTooLong", err)
	}
	if _, err := svc.Register(ctx, "smurf", "", "KR1", "ap"); !errors.Is(err, ErrEmptyRiotID) {
		t.Errorf("blank name err = %v, want ErrEmptyRiotID", err)
	}
	if _, err := svc.Register(ctx, "smurf", "Ghost", "XX1", "ap"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("unknown account err = %v, want ErrAccountNotFound", err)
	}
}

func TestRegister_ResolveAndUnregister(t *testing.T) {
	resolver := &fakeResolver{accounts: map[string]*valorant.Account{
		"Player#KR1": {Puuid: "puuid-1", Name: "Player", Tag: "KR1"},
	}}
	svc := newAccountService(t, resolver)
	ctx := context.Background()

	row, err := svc.Register(ctx, "Smurf", "Player", "KR1", "kr")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if row.Puuid != "puuid-1" {
		t.Errorf("puuid = %q", row.Puuid)
	}
	if row.AliasNorm != "smurf" || row.Alias != "Smurf" {
		t.Errorf("alias rows = %q/%q", row.AliasNorm, row.Alias)
	}

	// lookup by any casing
	got, err := svc.ResolveAlias(ctx, "SMURF")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Puuid != "puuid-1" {
		t.Errorf("resolved puuid = %q", got.Puuid)
	}

	if err := svc.Unregister(ctx, "smurf"); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if err := svc.Unregister(ctx, "smurf"); !errors.Is(err, ErrAliasNotFound) {
		t.Errorf("second unregister err = %v, want ErrAliasNotFound", err)
	}
	if _, err := svc.ResolveAlias(ctx, "smurf"); !errors.Is(err, ErrAliasNotFound) {
		t.Errorf("resolve after unregister err = %v, want ErrAliasNotFound", err)
	}
}

func TestAutocomplete(t *testing.T) {
	resolver := &fakeResolver{accounts: map[string]*valorant.Account{
		"Player#KR1": {Puuid: "p1"},
		"Other#EU9":  {Puuid: "p2"},
	}}
	svc := newAccountService(t, resolver)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Smurf", "Player", "KR1", "kr"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, "Main", "Other", "EU9", "eu"); err != nil {
		t.Fatalf("register: %v", err)
	}

	choices, err := svc.Autocomplete(ctx, "smu")
	if err != nil {
		t.Fatalf("autocomplete: %v", err)
	}
	if len(choices) != 1 {
		t.Fatalf("len = %d, want 1: %+v", len(choices), choices)
	}
	if choices[0].Value != "Smurf" {
		t.Errorf("value = %q, want registered casing", choices[0].Value)
	}
	if choices[0].Label != "Smurf (Player#KR1)" {
		t.Errorf("label = %q", choices[0].Label)
	}

	all, err := svc.Autocomplete(ctx, "")
	if err != nil {
		t.Fatalf("autocomplete all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len = %d, want 2", len(all))
	}
}

func TestAliasDisplay_Clipped(t *testing.T) {
	long := strings.Repeat("한", MaxAliasLen) // multibyte on purpose
	a := domain.Alias{Alias: long, Name: strings.Repeat("n", 60), Tag: strings.Repeat("t", 30)}
	label := aliasDisplay(a)
	if got := len([]rune(label)); got > maxChoiceLen {
		t.Errorf("label runes = %d, want <= %d", got, maxChoiceLen)
	}
	if !strings.HasSuffix(label, "...") {
		t.Errorf("clipped label should end in ellipsis: %q", label)
	}
}
