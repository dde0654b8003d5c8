package domain

import "testing"

func TestOwnerKeys_Disjoint(t *testing.T) {
	if got := UserOwnerKey("123"); got != "user:123" {
		t.Errorf("UserOwnerKey = %q", got)
	}
	if got := AliasOwnerKey("smurf"); got != "alias:smurf" {
		t.Errorf("AliasOwnerKey = %q", got)
	}
	if UserOwnerKey("x") == AliasOwnerKey("x") {
		t.Error("user and alias keyspaces collide")
	}
}

func TestCachedMatch_Won(t *testing.T) {
	win := ResultWin
	loss := ResultLoss

	if won, ok := (CachedMatch{Result: &win}).Won(); !ok || !won {
		t.Errorf("win: won=%v ok=%v", won, ok)
	}
	if won, ok := (CachedMatch{Result: &loss}).Won(); !ok || won {
		t.Errorf("loss: won=%v ok=%v", won, ok)
	}
	if _, ok := (CachedMatch{}).Won(); ok {
		t.Error("nil result reported as known outcome")
	}
}

func TestRiotIDRendering(t *testing.T) {
	l := LinkedAccount{Name: "Player", Tag: "KR1"}
	if l.RiotID() != "Player#KR1" {
		t.Errorf("link RiotID = %q", l.RiotID())
	}
	a := Alias{AliasNorm: "smurf", Name: "Other", Tag: "EU9"}
	if a.RiotID() != "Other#EU9" {
		t.Errorf("alias RiotID = %q", a.RiotID())
	}
	if a.OwnerKey() != "alias:smurf" {
		t.Errorf("alias OwnerKey = %q", a.OwnerKey())
	}
}
