// Package services – AccountService
//
// Linking and alias registration. Both paths resolve the account upstream
// before writing anything: a link is only stored for an account that exists,
// and an alias is only accepted once its puuid is known, because the dedup
// engine and the poll loop match players by puuid.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"valbot/internal/domain"
	"valbot/internal/repo"
	"valbot/internal/valorant"
)

// MaxAliasLen caps alias length in runes.
const MaxAliasLen = 32

// maxChoiceLen caps autocomplete labels per the chat platform limit.
const maxChoiceLen = 100

// regions is the set of recognized region codes; anything else normalizes to
// the default.
var regions = map[string]struct{}{
	"ap": {}, "kr": {}, "eu": {}, "na": {}, "br": {}, "latam": {},
}

var aliasFolder = cases.Fold()

// NormalizeAlias case-folds and trims an alias for use as a store key.
func NormalizeAlias(alias string) string {
	return aliasFolder.String(strings.TrimSpace(alias))
}

// NormRegion lowercases a region code, falling back to "ap" for anything
// outside the known set.
func NormRegion(region string) string {
	r := strings.ToLower(strings.TrimSpace(region))
	if _, ok := regions[r]; ok {
		return r
	}
	return "ap"
}

// AccountResolver is the upstream lookup contract AccountService needs.
type AccountResolver interface {
	GetAccount(ctx context.Context, name, tag string) (*valorant.Account, error)
}

// AccountService manages linked accounts and registered aliases.
type AccountService struct {
	DB       *gorm.DB
	Upstream AccountResolver
}

// NewAccountService constructs an AccountService.
func NewAccountService(db *gorm.DB, upstream AccountResolver) *AccountService {
	return &AccountService{DB: db, Upstream: upstream}
}

// Link verifies the account upstream and stores (or replaces) the user's
// link. Returns ErrAccountNotFound when the Riot ID does not resolve.
func (s *AccountService) Link(ctx context.Context, userID, name, tag, region string) (*domain.LinkedAccount, error) {
	name, tag = strings.TrimSpace(name), strings.TrimSpace(tag)
	if name == "" || tag == "" {
		return nil, ErrEmptyRiotID
	}

	if _, err := s.resolve(ctx, name, tag); err != nil {
		return nil, err
	}

	link := &domain.LinkedAccount{
		UserID: userID,
		Name:   name,
		Tag:    tag,
		Region: NormRegion(region),
	}
	if err := repo.UpsertLink(ctx, s.DB, link); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return link, nil
}

// Unlink removes the user's link and returns the prior value, cascading the
// user's cached matches and rollups. Returns ErrLinkNotFound when nothing
// was linked.
func (s *AccountService) Unlink(ctx context.Context, userID string) (*domain.LinkedAccount, error) {
	prior, err := repo.PopLink(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return prior, nil
}

// Link lookup for command handlers.
func (s *AccountService) GetLink(ctx context.Context, userID string) (*domain.LinkedAccount, error) {
	link, err := repo.GetLink(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return link, nil
}

// Register validates the alias, resolves the account upstream (the puuid is
// mandatory before an alias is accepted), and upserts the registration keyed
// on the normalized alias.
func (s *AccountService) Register(ctx context.Context, alias, name, tag, region string) (*domain.Alias, error) {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return nil, ErrEmptyAlias
	}
	if len([]rune(alias)) > MaxAliasLen {
		return nil, ErrAliasTooLong
	}
	name, tag = strings.TrimSpace(name), strings.TrimSpace(tag)
	if name == "" || tag == "" {
		return nil, ErrEmptyRiotID
	}

	acc, err := s.resolve(ctx, name, tag)
	if err != nil {
		return nil, err
	}

	row := &domain.Alias{
		AliasNorm: NormalizeAlias(alias),
		Alias:     alias,
		Name:      name,
		Tag:       tag,
		Region:    NormRegion(region),
		Puuid:     acc.Puuid,
	}
	if err := repo.UpsertAlias(ctx, s.DB, row); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return row, nil
}

// Unregister removes an alias, or returns ErrAliasNotFound.
func (s *AccountService) Unregister(ctx context.Context, alias string) error {
	err := repo.RemoveAlias(ctx, s.DB, NormalizeAlias(alias))
	if errors.Is(err, repo.ErrNotFound) {
		return ErrAliasNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// ResolveAlias looks up a registered alias by any casing of its name.
func (s *AccountService) ResolveAlias(ctx context.Context, alias string) (*domain.Alias, error) {
	row, err := repo.GetAlias(ctx, s.DB, NormalizeAlias(alias))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAliasNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return row, nil
}

// ListAliases returns every registered alias.
func (s *AccountService) ListAliases(ctx context.Context) ([]domain.Alias, error) {
	out, err := repo.ListAliases(ctx, s.DB)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return out, nil
}

// Choice is one autocomplete suggestion.
type Choice struct {
	Label string // display text, clipped to the platform limit
	Value string // the alias as registered
}

// Autocomplete returns up to 25 alias choices matching query.
func (s *AccountService) Autocomplete(ctx context.Context, query string) ([]Choice, error) {
	rows, err := repo.SearchAliases(ctx, s.DB, query, repo.SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	out := make([]Choice, 0, len(rows))
	for _, row := range rows {
		out = append(out, Choice{Label: aliasDisplay(row), Value: row.Alias})
	}
	return out, nil
}

// resolve wraps the upstream account lookup, reclassifying its errors.
func (s *AccountService) resolve(ctx context.Context, name, tag string) (*valorant.Account, error) {
	acc, err := s.Upstream.GetAccount(ctx, name, tag)
	if err != nil {
		if errors.Is(err, valorant.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return acc, nil
}

// aliasDisplay renders "alias (name#tag)", clipped with an ellipsis to the
// platform's choice-label limit.
func aliasDisplay(a domain.Alias) string {
	label := fmt.Sprintf("%s (%s#%s)", a.Alias, a.Name, a.Tag)
	if a.Alias == "" {
		label = fmt.Sprintf("%s#%s", a.Name, a.Tag)
	}
	if len([]rune(label)) > maxChoiceLen {
		label = string([]rune(label)[:maxChoiceLen-3]) + "..."
	}
	return label
}
