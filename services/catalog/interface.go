package catalog

import (
	"context"

	"clipflow/models"
)

// Service refreshes the candidate-video catalog from source channels.
type Service interface {
	// RefreshUser fetches videos for every channel the user follows and
	// upserts them, continuing past per-channel failures.
	RefreshUser(ctx context.Context, userID string) ([]models.ChannelFetchResult, error)

	// RefreshAllUsers refreshes every account. Used by the daily cron.
	RefreshAllUsers(ctx context.Context) (map[string][]models.ChannelFetchResult, error)
}

// VideoSource fetches a channel's uploads, ranked by views.
type VideoSource interface {
	FetchChannelVideos(ctx context.Context, channelID string, minDurationSeconds, maxResults int) ([]models.Video, error)
	ResolveHandle(ctx context.Context, handle string) (string, error)
}

type Config struct {
	// MaxVideosPerChannel caps how many ranked videos are kept per refresh.
	MaxVideosPerChannel int
}
