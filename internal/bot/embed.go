package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"valbot/internal/domain"
	"valbot/internal/valorant"
)

// Embed colors for match outcomes.
const (
	colorWin     = 0x2ECC71
	colorLoss    = 0xE74C3C
	colorUnknown = 0x95A5A6
)

const matchURLBase = "https://tracker.gg/valorant/match/"

// BuildMatchEmbed renders the alert embed for one match: map/mode header,
// outcome coloring, the owner's K/D/A, round scores, and a link to the full
// match page.
func BuildMatchEmbed(alias domain.Alias, match map[string]any, matchID string) *discordgo.MessageEmbed {
	meta := valorant.Metadata(match)
	mapName := valorant.MetadataLabel(meta, "map", "?")
	modeName := valorant.MetadataLabel(meta, "mode", "?")

	player := valorant.FindPlayer(match, alias.Puuid, alias.Name, alias.Tag)
	var result *bool
	if player != nil {
		result = valorant.TeamResult(match["teams"], valorant.PlayerTeam(player))
	}

	color := colorUnknown
	resultLabel := "Unknown"
	switch {
	case result != nil && *result:
		color = colorWin
		resultLabel = "Victory"
	case result != nil:
		color = colorLoss
		resultLabel = "Defeat"
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s — latest match", alias.Alias),
		Description: fmt.Sprintf("%s · %s", mapName, modeName),
		Color:       color,
		URL:         matchURLBase + matchID,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Riot ID", Value: alias.RiotID(), Inline: true},
			{Name: "Result", Value: resultLabel, Inline: true},
		},
	}

	if player != nil {
		if k, d, a := valorant.PlayerStats(player); k != nil && d != nil && a != nil {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name: "K/D/A", Value: fmt.Sprintf("%d/%d/%d", *k, *d, *a), Inline: true,
			})
		}
	}

	if scores := roundScores(match, result); scores != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Rounds", Value: scores, Inline: true,
		})
	}

	if started := startedAt(meta); started != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Started: " + started}
	}
	return embed
}

// roundScores renders one line per team with its rounds won, labeled from the
// owner's perspective when the outcome is known.
func roundScores(match map[string]any, outcome *bool) string {
	teams, ok := match["teams"].(map[string]any)
	if !ok {
		return ""
	}

	var lines []string
	for name, raw := range teams {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		won := valorant.TeamResult(map[string]any{name: raw}, name)
		rounds, ok := entry["rounds_won"].(float64)
		if !ok {
			continue
		}

		label := name
		if len(name) > 0 {
			label = strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
		}
		if outcome != nil && won != nil {
			if *won == *outcome {
				label = "Our team"
			} else {
				label = "Their team"
			}
		}
		lines = append(lines, fmt.Sprintf("%s: %d", label, int(rounds)))
	}
	return strings.Join(lines, "\n")
}

func startedAt(meta map[string]any) string {
	if meta == nil {
		return ""
	}
	if s, ok := meta["game_start_patched"].(string); ok && s != "" {
		return s
	}
	if sec, ok := meta["game_start"].(float64); ok && sec > 0 {
		return time.Unix(int64(sec), 0).UTC().Format("2006-01-02 15:04 MST")
	}
	return ""
}
