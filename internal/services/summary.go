// Package services – batch aggregation
//
// Pure aggregation over a fetched match batch, used by summary-style lookups.
// Matches whose outcome cannot be derived (deathmatch, malformed team block)
// contribute kills and deaths but are excluded from the win/loss totals.
package services

import (
	"encoding/json"

	"valbot/internal/valorant"
)

// Summary holds win/loss and combat totals for one player over a batch.
type Summary struct {
	Wins    int
	Losses  int
	Kills   int
	Deaths  int
	Assists int
}

// Played returns the number of matches with a decided outcome.
func (s Summary) Played() int { return s.Wins + s.Losses }

// WinRate returns the win percentage over decided matches, 0 when none.
func (s Summary) WinRate() float64 {
	if s.Played() == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Played()) * 100
}

// KD returns the kill/death ratio truncated to two decimals; with zero
// deaths it returns the kill count.
func (s Summary) KD() float64 {
	if s.Deaths == 0 {
		return float64(s.Kills)
	}
	return float64(int(float64(s.Kills)/float64(s.Deaths)*100)) / 100
}

// AggregateBatch tallies the player's performance across raw match payloads.
// Payloads that fail to decode or where the player is absent are skipped.
func AggregateBatch(puuid string, payloads []json.RawMessage) Summary {
	var out Summary
	for _, raw := range payloads {
		var match map[string]any
		if err := json.Unmarshal(raw, &match); err != nil {
			continue
		}
		player := valorant.FindPlayer(match, puuid, "", "")
		if player == nil {
			continue
		}

		kills, deaths, assists := valorant.PlayerStats(player)
		if kills != nil {
			out.Kills += *kills
		}
		if deaths != nil {
			out.Deaths += *deaths
		}
		if assists != nil {
			out.Assists += *assists
		}

		if result := valorant.TeamResult(match["teams"], valorant.PlayerTeam(player)); result != nil {
			if *result {
				out.Wins++
			} else {
				out.Losses++
			}
		}
	}
	return out
}
