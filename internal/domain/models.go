// Package domain defines the persistence models for linked accounts, player
// aliases, cached match results, alert channel bindings, and period rollups.
// These types are mapped with GORM and form the durable state of the bot.
package domain

import (
	"fmt"
	"time"
)

// Owner key prefixes. A cached match belongs either to a linked Discord user
// or to a registered alias; the prefix keeps the two keyspaces disjoint.
const (
	ownerUserPrefix  = "user:"
	ownerAliasPrefix = "alias:"
)

// UserOwnerKey returns the owner key for a linked Discord user.
func UserOwnerKey(userID string) string { return ownerUserPrefix + userID }

// AliasOwnerKey returns the owner key for a registered alias. The alias must
// already be normalized (see services.NormalizeAlias).
func AliasOwnerKey(aliasNorm string) string { return ownerAliasPrefix + aliasNorm }

// LinkedAccount maps a Discord user to a Riot ID. One row per user; re-linking
// overwrites the previous row, unlinking removes it together with any cached
// matches and rollups stored under the user's owner key.
type LinkedAccount struct {
	UserID    string    `json:"user_id" gorm:"type:varchar(32);primaryKey"`
	Name      string    `json:"name"    gorm:"type:varchar(64);not null"`
	Tag       string    `json:"tag"     gorm:"type:varchar(16);not null"`
	Region    string    `json:"region"  gorm:"type:varchar(8);not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for LinkedAccount.
func (LinkedAccount) TableName() string { return "links" }

// RiotID renders the account as "name#tag".
func (l LinkedAccount) RiotID() string { return fmt.Sprintf("%s#%s", l.Name, l.Tag) }

// Alias maps a user-chosen friendly name to a Riot ID. The normalized alias is
// the primary key, so registration is last-write-wins per alias regardless of
// the casing the user typed. The puuid is mandatory: an alias is only accepted
// once the upstream account has been resolved.
type Alias struct {
	AliasNorm string    `json:"alias_norm" gorm:"type:varchar(32);primaryKey"`
	Alias     string    `json:"alias"      gorm:"type:varchar(32);not null"` // original casing for display
	Name      string    `json:"name"       gorm:"type:varchar(64);not null"`
	Tag       string    `json:"tag"        gorm:"type:varchar(16);not null"`
	Region    string    `json:"region"     gorm:"type:varchar(8);not null"`
	Puuid     string    `json:"puuid"      gorm:"type:varchar(128);not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Alias.
func (Alias) TableName() string { return "aliases" }

// OwnerKey returns the owner key under which this alias' matches are cached.
func (a Alias) OwnerKey() string { return AliasOwnerKey(a.AliasNorm) }

// RiotID renders the alias target as "name#tag".
func (a Alias) RiotID() string { return fmt.Sprintf("%s#%s", a.Name, a.Tag) }

// Match results. Stored as a nullable tri-state: a missing value means the
// outcome could not be derived from the payload (e.g. deathmatch).
const (
	ResultLoss = 0
	ResultWin  = 1
)

// CachedMatch is one match result cached for one owner. The composite unique
// index on (match_id, owner_key) is the dedup contract: writing the same pair
// twice is an update, never a second row. Derived fields (result, K/D/A) are
// nullable because upstream payloads can be missing the relevant blocks.
type CachedMatch struct {
	MatchID  string     `json:"match_id"  gorm:"type:varchar(64);not null;uniqueIndex:ux_match_owner,priority:1"`
	OwnerKey string     `json:"owner_key" gorm:"type:varchar(64);not null;uniqueIndex:ux_match_owner,priority:2;index:idx_owner_played,priority:1"`
	Map      string     `json:"map"       gorm:"type:varchar(64)"`
	Mode     string     `json:"mode"      gorm:"type:varchar(64)"`
	Team     string     `json:"team"      gorm:"type:varchar(32)"`
	Result   *int       `json:"result,omitempty"`
	Kills    *int       `json:"kills,omitempty"`
	Deaths   *int       `json:"deaths,omitempty"`
	Assists  *int       `json:"assists,omitempty"`
	PlayedAt *time.Time `json:"played_at,omitempty" gorm:"index:idx_owner_played,priority:2"`
	Raw      string     `json:"-"         gorm:"type:text"`
	CachedAt time.Time  `json:"cached_at"`
}

// TableName returns the database table name for CachedMatch.
func (CachedMatch) TableName() string { return "match_cache" }

// Won reports whether the owner won this match; ok is false when the outcome
// is unknown.
func (m CachedMatch) Won() (won, ok bool) {
	if m.Result == nil {
		return false, false
	}
	return *m.Result == ResultWin, true
}

// AlertChannel binds a guild to the channel that receives match alerts.
// One binding per guild, last write wins.
type AlertChannel struct {
	GuildID   string    `json:"guild_id"   gorm:"type:varchar(32);primaryKey"`
	ChannelID string    `json:"channel_id" gorm:"type:varchar(32);not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for AlertChannel.
func (AlertChannel) TableName() string { return "alert_channels" }

// PeriodRollup accumulates win/loss and combat totals for one owner within
// one period (a day stamp like "2026-08-29" or an act label). Fed by the
// dedup engine: only matches counted as new contribute, so replays of the
// same batch do not inflate the totals.
type PeriodRollup struct {
	Period    string    `json:"period"     gorm:"type:varchar(32);not null;uniqueIndex:ux_rollup_period_owner,priority:1"`
	OwnerKey  string    `json:"owner_key"  gorm:"type:varchar(64);not null;uniqueIndex:ux_rollup_period_owner,priority:2"`
	Wins      int       `json:"wins"       gorm:"not null;default:0"`
	Losses    int       `json:"losses"     gorm:"not null;default:0"`
	Kills     int       `json:"kills"      gorm:"not null;default:0"`
	Deaths    int       `json:"deaths"     gorm:"not null;default:0"`
	Assists   int       `json:"assists"    gorm:"not null;default:0"`
	RankDelta int       `json:"rank_delta" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for PeriodRollup.
func (PeriodRollup) TableName() string { return "period_rollups" }
