package catalog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	apperrors "clipflow/errors"
	"clipflow/models"
	"clipflow/repository"
	"clipflow/validation"
)

const rssFeedURL = "https://www.youtube.com/feeds/videos.xml?channel_id=%s"

type service struct {
	users   repository.UserRepository
	videos  repository.VideoRepository
	source  VideoSource
	parser  *gofeed.Parser
	feedURL string
	config  Config
	logger  zerolog.Logger
}

// NewService builds the catalog refresher. source may be nil when no data
// API key is configured; refreshes then fall back to channel RSS feeds.
func NewService(
	users repository.UserRepository,
	videos repository.VideoRepository,
	source VideoSource,
	config Config,
	logger zerolog.Logger,
) Service {
	if config.MaxVideosPerChannel <= 0 {
		config.MaxVideosPerChannel = 200
	}
	return &service{
		users:   users,
		videos:  videos,
		source:  source,
		parser:  gofeed.NewParser(),
		feedURL: rssFeedURL,
		config:  config,
		logger:  logger,
	}
}

func (s *service) RefreshUser(ctx context.Context, userID string) ([]models.ChannelFetchResult, error) {
	const op = "catalog.RefreshUser"

	if userID == "" {
		return nil, apperrors.InvalidInput(op, nil, "User ID is required")
	}

	channels, err := s.users.UserChannels(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(op, err, "Failed to load source channels")
	}
	if len(channels) == 0 {
		return nil, apperrors.InvalidInput(op, nil, "No source channels configured")
	}

	results := make([]models.ChannelFetchResult, 0, len(channels))
	for _, channel := range channels {
		result := models.ChannelFetchResult{ChannelURL: channel.ChannelURL}

		count, err := s.refreshChannel(ctx, channel)
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("channel_url", channel.ChannelURL).
				Msg("Channel refresh failed")
			result.Error = err.Error()
		} else {
			result.Success = true
			result.VideosCount = count
		}
		results = append(results, result)
	}

	return results, nil
}

func (s *service) RefreshAllUsers(ctx context.Context) (map[string][]models.ChannelFetchResult, error) {
	const op = "catalog.RefreshAllUsers"

	users, err := s.users.AllUsers(ctx)
	if err != nil {
		return nil, apperrors.Internal(op, err, "Failed to list users")
	}

	all := make(map[string][]models.ChannelFetchResult, len(users))
	for _, user := range users {
		results, err := s.RefreshUser(ctx, user.ID)
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("user_id", user.ID).
				Msg("User refresh failed")
			continue
		}
		all[user.ID] = results
	}

	return all, nil
}

func (s *service) refreshChannel(ctx context.Context, channel models.SourceChannel) (int, error) {
	channelID, err := s.resolveChannelID(ctx, channel.ChannelURL)
	if err != nil {
		return 0, err
	}

	var videos []models.Video
	if s.source != nil {
		videos, err = s.source.FetchChannelVideos(ctx, channelID, channel.MinDurationSeconds, s.config.MaxVideosPerChannel)
	} else {
		videos, err = s.fetchFromFeed(ctx, channelID)
	}
	if err != nil {
		return 0, err
	}
	if len(videos) == 0 {
		return 0, nil
	}

	if err := s.videos.SaveVideos(ctx, channel.ID, videos); err != nil {
		return 0, err
	}
	return len(videos), nil
}

func (s *service) resolveChannelID(ctx context.Context, channelURL string) (string, error) {
	if id := validation.ExtractChannelID(channelURL); id != "" {
		return id, nil
	}

	handle := validation.ExtractHandle(channelURL)
	if handle == "" {
		return "", fmt.Errorf("unrecognized channel URL: %s", channelURL)
	}
	if s.source == nil {
		return "", fmt.Errorf("handle URLs need a data API key to resolve: %s", channelURL)
	}
	return s.source.ResolveHandle(ctx, handle)
}

// fetchFromFeed reads the channel's public RSS feed. Feeds carry no duration
// data, so the per-channel minimum duration only applies on the API path.
func (s *service) fetchFromFeed(ctx context.Context, channelID string) ([]models.Video, error) {
	feed, err := s.parser.ParseURLWithContext(fmt.Sprintf(s.feedURL, channelID), ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse channel feed: %w", err)
	}

	videos := make([]models.Video, 0, len(feed.Items))
	for _, item := range feed.Items {
		videoID := feedVideoID(item)
		if videoID == "" {
			continue
		}
		videos = append(videos, models.Video{
			VideoID:   videoID,
			Title:     item.Title,
			Views:     feedViewCount(item),
			FetchedAt: time.Now(),
		})
	}
	return videos, nil
}

func feedVideoID(item *gofeed.Item) string {
	yt, ok := item.Extensions["yt"]
	if !ok {
		return ""
	}
	ids, ok := yt["videoId"]
	if !ok || len(ids) == 0 {
		return ""
	}
	return ids[0].Value
}

func feedViewCount(item *gofeed.Item) int64 {
	media, ok := item.Extensions["media"]
	if !ok {
		return 0
	}
	groups, ok := media["group"]
	if !ok || len(groups) == 0 {
		return 0
	}
	community, ok := groups[0].Children["community"]
	if !ok || len(community) == 0 {
		return 0
	}
	stats, ok := community[0].Children["statistics"]
	if !ok || len(stats) == 0 {
		return 0
	}
	views, err := strconv.ParseInt(stats[0].Attrs["views"], 10, 64)
	if err != nil {
		return 0
	}
	return views
}
