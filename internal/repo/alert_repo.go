// Package repo – alert channel repository
//
// One alert destination per guild, last write wins. Read by the poll loop
// fan-out on every notification.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"valbot/internal/domain"
)

// SetAlertChannel inserts or replaces the binding for guildID.
func SetAlertChannel(ctx context.Context, db *gorm.DB, guildID, channelID string) error {
	b := &domain.AlertChannel{
		GuildID:   guildID,
		ChannelID: channelID,
		CreatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}},
			UpdateAll: true,
		}).
		Create(b).Error
}

// RemoveAlertChannel deletes the binding for guildID, or ErrNotFound.
func RemoveAlertChannel(ctx context.Context, db *gorm.DB, guildID string) error {
	res := db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Delete(&domain.AlertChannel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetAlertChannel fetches the binding for guildID, or ErrNotFound.
func GetAlertChannel(ctx context.Context, db *gorm.DB, guildID string) (*domain.AlertChannel, error) {
	var b domain.AlertChannel
	if err := db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// ListAlertChannels returns every binding, oldest registration first.
func ListAlertChannels(ctx context.Context, db *gorm.DB) ([]domain.AlertChannel, error) {
	var out []domain.AlertChannel
	err := db.WithContext(ctx).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}
