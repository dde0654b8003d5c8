package valorant

// Helpers for picking apart raw match payloads. Upstream is inconsistent
// about field names and key casing, so every accessor checks the known
// variants in priority order and degrades to a zero value instead of failing.

import (
	"strconv"
	"strings"
	"time"
)

func clean(s string) string { return strings.TrimSpace(s) }

// Metadata returns the payload's metadata object, or nil.
func Metadata(match map[string]any) map[string]any {
	meta, _ := match["metadata"].(map[string]any)
	return meta
}

// MatchID extracts the match identifier, checking the known field-name
// variants in priority order. Empty string when the payload has none.
func MatchID(match map[string]any) string {
	if meta := Metadata(match); meta != nil {
		for _, key := range []string{"matchid", "matchId", "matchID"} {
			if s, ok := meta[key].(string); ok && clean(s) != "" {
				return clean(s)
			}
		}
	}
	if s, ok := match["match_id"].(string); ok {
		return clean(s)
	}
	return ""
}

// PlayedAt extracts the match start time from metadata.game_start
// (unix seconds). Nil when absent or unparseable.
func PlayedAt(match map[string]any) *time.Time {
	meta := Metadata(match)
	if meta == nil {
		return nil
	}
	if sec := asInt(meta["game_start"]); sec != nil && *sec > 0 {
		t := time.Unix(int64(*sec), 0).UTC()
		return &t
	}
	return nil
}

// FindPlayer locates the owner's participant entry, matching on puuid first
// (case-insensitive) and falling back to name#tag. Nil when absent.
func FindPlayer(match map[string]any, puuid, name, tag string) map[string]any {
	players, _ := match["players"].(map[string]any)
	all, _ := players["all_players"].([]any)

	if p := strings.ToLower(clean(puuid)); p != "" {
		for _, raw := range all {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if candidate, _ := entry["puuid"].(string); strings.ToLower(clean(candidate)) == p {
				return entry
			}
		}
	}

	n := strings.ToLower(clean(name))
	t := strings.ToUpper(clean(tag))
	if n == "" || t == "" {
		return nil
	}
	for _, raw := range all {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		entryName := firstString(entry, "game_name", "gameName", "name")
		entryTag := firstString(entry, "tag_line", "tagLine", "tag")
		if strings.ToLower(entryName) == n && strings.ToUpper(entryTag) == t {
			return entry
		}
	}
	return nil
}

// PlayerTeam returns the player's team name, or "".
func PlayerTeam(player map[string]any) string {
	s, _ := player["team"].(string)
	return clean(s)
}

// PlayerStats extracts the kill/death/assist counts from a participant entry.
// Each value is nil when the stat block is missing or malformed.
func PlayerStats(player map[string]any) (kills, deaths, assists *int) {
	stats, _ := player["stats"].(map[string]any)
	if stats == nil {
		return nil, nil, nil
	}
	return asInt(stats["kills"]), asInt(stats["deaths"]), asInt(stats["assists"])
}

// TeamResult derives the win/loss outcome for team within the payload's team
// structure, which may be a map keyed by team name (in any casing) or a list
// of team entries. Nil means the outcome is unknown.
func TeamResult(teams any, team string) *bool {
	teamClean := clean(team)
	if teamClean == "" {
		return nil
	}

	entries := map[string]map[string]any{}
	switch val := teams.(type) {
	case map[string]any:
		for key, raw := range val {
			if entry, ok := raw.(map[string]any); ok {
				registerTeamEntry(entries, key, entry)
			}
		}
	case []any:
		for _, raw := range val {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			for _, key := range []string{"team", "team_name", "name", "id", "team_id", "side"} {
				if name := firstString(entry, key); name != "" {
					registerTeamEntry(entries, name, entry)
					break
				}
			}
		}
	default:
		return nil
	}
	if len(entries) == 0 {
		return nil
	}

	for _, key := range keyVariants(teamClean) {
		entry, ok := entries[key]
		if !ok {
			continue
		}
		if result := teamOutcome(entry); result != nil {
			return result
		}
	}

	// Last resort: match on folded keys.
	target := strings.ToLower(teamClean)
	for key, entry := range entries {
		if strings.ToLower(clean(key)) == target {
			if result := teamOutcome(entry); result != nil {
				return result
			}
		}
	}
	return nil
}

// teamOutcome derives win/loss for a single team entry: an explicit
// boolean-like win flag first, then rounds won vs rounds lost. Nil when
// neither decides (including equal rounds).
func teamOutcome(entry map[string]any) *bool {
	if result := coerceBoolish(entry["has_won"]); result != nil {
		return result
	}
	if result := coerceBoolish(entry["won"]); result != nil {
		return result
	}

	won := asInt(entry["rounds_won"])
	lost := asInt(entry["rounds_lost"])
	if won != nil && lost != nil {
		switch {
		case *won > *lost:
			return boolPtr(true)
		case *lost > *won:
			return boolPtr(false)
		}
	}
	return nil
}

// registerTeamEntry indexes an entry under every casing variant of its key so
// lookups tolerate upstream's inconsistent casing.
func registerTeamEntry(entries map[string]map[string]any, key string, entry map[string]any) {
	base := clean(key)
	if base == "" {
		return
	}
	entries[key] = entry
	for _, variant := range keyVariants(base) {
		entries[variant] = entry
	}
}

func keyVariants(key string) []string {
	title := key
	if len(key) > 0 {
		title = strings.ToUpper(key[:1]) + strings.ToLower(key[1:])
	}
	return []string{key, strings.ToLower(key), strings.ToUpper(key), title}
}

// coerceBoolish interprets a value as a win flag: bools pass through, numeric
// 1/0 map to true/false, and the usual win/loss strings are recognized.
// Nil when the value is absent or unrecognized.
func coerceBoolish(v any) *bool {
	switch val := v.(type) {
	case bool:
		return boolPtr(val)
	case float64:
		if val == 1 {
			return boolPtr(true)
		}
		if val == 0 {
			return boolPtr(false)
		}
	case int:
		if val == 1 {
			return boolPtr(true)
		}
		if val == 0 {
			return boolPtr(false)
		}
	case string:
		switch strings.ToLower(clean(val)) {
		case "win", "won", "victory", "true", "t", "1", "yes", "y":
			return boolPtr(true)
		case "loss", "lost", "defeat", "false", "f", "0", "no", "n":
			return boolPtr(false)
		}
	}
	return nil
}

// asInt coerces numbers and numeric strings to an int. JSON numbers decode as
// float64, so that is the common path.
func asInt(v any) *int {
	switch val := v.(type) {
	case float64:
		n := int(val)
		return &n
	case int:
		n := val
		return &n
	case bool:
		n := 0
		if val {
			n = 1
		}
		return &n
	case string:
		s := clean(val)
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			n := int(f)
			return &n
		}
	}
	return nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && clean(s) != "" {
			return clean(s)
		}
	}
	return ""
}

func boolPtr(b bool) *bool { return &b }
