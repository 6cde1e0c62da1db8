package repository

import (
	"context"

	"clipflow/models"
)

// VideoRepository is the candidate-video catalog.
type VideoRepository interface {
	// SaveVideos upserts fetched videos for a channel, keyed by platform
	// video id.
	SaveVideos(ctx context.Context, channelID string, videos []models.Video) error

	// UserVideos returns every candidate video belonging to the user's
	// source channels, ordered by views descending.
	UserVideos(ctx context.Context, userID string) ([]models.Video, error)

	ChannelVideos(ctx context.Context, channelID string) ([]models.Video, error)
}

// ScheduleRepository persists per-day video assignments.
type ScheduleRepository interface {
	// ExistsForDate reports whether the user already has a schedule on the
	// given date.
	ExistsForDate(ctx context.Context, userID, date string) (bool, error)

	// CommitDay inserts one day's ordered selection atomically. Positions
	// are assigned from slice order starting at 0.
	CommitDay(ctx context.Context, userID string, videoIDs []string, date string) error

	// RecentlyScheduledVideoIDs returns the ids of videos scheduled for the
	// user within the trailing lookback window.
	RecentlyScheduledVideoIDs(ctx context.Context, userID string, lookbackDays int) (map[string]bool, error)

	// EntriesForDate returns the user's entries for a date ordered by
	// position, with video details attached.
	EntriesForDate(ctx context.Context, userID, date string) ([]models.ScheduleEntry, error)

	// UpdateEntry persists status and payload mutations for one entry.
	UpdateEntry(ctx context.Context, entry *models.ScheduleEntry) error
}

// UserRepository holds accounts and their settings.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	AllUsers(ctx context.Context) ([]models.User, error)

	Settings(ctx context.Context, userID string) (*models.UserSettings, error)
	SaveSettings(ctx context.Context, settings *models.UserSettings) error

	UserChannels(ctx context.Context, userID string) ([]models.SourceChannel, error)

	// SaveChannel inserts a source channel, or updates it when the id
	// already exists for the user.
	SaveChannel(ctx context.Context, channel *models.SourceChannel) error

	// DeleteChannel removes one of the user's channels.
	DeleteChannel(ctx context.Context, userID, channelID string) error
}

// SettingsRepository holds installation-wide key/value settings and the
// transcript API key rotation pool.
type SettingsRepository interface {
	SharedSetting(ctx context.Context, key string) (string, error)
	SetSharedSetting(ctx context.Context, key, value string) error

	ActiveSupadataKeys(ctx context.Context) ([]models.SupadataKey, error)
	MarkKeyExhausted(ctx context.Context, id string) error
}
