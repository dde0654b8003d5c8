// Package bot contains the outbound Discord surface of the alert pipeline:
// resolving alert-channel bindings to real channels and sending match embeds.
// Command registration and dispatch live outside this repository; this
// package only ever pushes messages out.
package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"valbot/internal/domain"
	"valbot/internal/metrics"
	"valbot/internal/repo"
)

// ChannelSession is the slice of discordgo.Session the notifier needs.
type ChannelSession interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier fans match alerts out to every registered alert channel. A
// missing or forbidden destination is skipped, never fatal to the dispatch.
type Notifier struct {
	db      *gorm.DB
	session ChannelSession
}

// NewNotifier constructs a Notifier sending through session.
func NewNotifier(db *gorm.DB, session ChannelSession) *Notifier {
	return &Notifier{db: db, session: session}
}

// NotifyMatch sends the alert embed for a newly seen match to every
// registered destination. It returns an error only when the destination
// list itself cannot be read.
func (n *Notifier) NotifyMatch(ctx context.Context, alias domain.Alias, match map[string]any, matchID string) error {
	targets, err := repo.ListAlertChannels(ctx, n.db)
	if err != nil {
		return fmt.Errorf("listing alert channels: %w", err)
	}
	if len(targets) == 0 {
		return nil
	}

	embed := BuildMatchEmbed(alias, match, matchID)
	for _, target := range targets {
		channel, err := n.resolveChannel(target.ChannelID)
		if err != nil {
			log.Warn().Str("guild", target.GuildID).Str("channel", target.ChannelID).
				Err(err).Msg("alert channel unavailable, skipping")
			continue
		}
		if !sendable(channel) {
			continue
		}
		if _, err := n.session.ChannelMessageSendEmbed(channel.ID, embed); err != nil {
			log.Error().Str("guild", target.GuildID).Str("channel", target.ChannelID).
				Err(err).Msg("sending alert failed")
			continue
		}
		metrics.AlertsSent.Inc()
	}
	return nil
}

// resolveChannel returns the channel, consulting the session state cache
// before fetching remotely.
func (n *Notifier) resolveChannel(channelID string) (*discordgo.Channel, error) {
	if s, ok := n.session.(*discordgo.Session); ok && s.State != nil {
		if channel, err := s.State.Channel(channelID); err == nil {
			return channel, nil
		}
	}
	return n.session.Channel(channelID)
}

// sendable reports whether the channel can receive a text message.
func sendable(channel *discordgo.Channel) bool {
	switch channel.Type {
	case discordgo.ChannelTypeGuildText,
		discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildNewsThread,
		discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread:
		return true
	default:
		return false
	}
}
