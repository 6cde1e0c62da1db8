package schedule

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"clipflow/errors"
	"clipflow/models"
	"clipflow/repository"

	"github.com/rs/zerolog"
)

type service struct {
	users     repository.UserRepository
	videos    repository.VideoRepository
	schedules repository.ScheduleRepository
	config    Config
	logger    zerolog.Logger
	rng       *rand.Rand
}

// NewService constructs the scheduling service. A nil rng falls back to a
// time-seeded source; tests pass a fixed seed for reproducible draws.
func NewService(
	users repository.UserRepository,
	videos repository.VideoRepository,
	schedules repository.ScheduleRepository,
	config Config,
	logger zerolog.Logger,
	rng *rand.Rand,
) Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &service{
		users:     users,
		videos:    videos,
		schedules: schedules,
		config:    config,
		logger:    logger,
		rng:       rng,
	}
}

func (s *service) Generate(ctx context.Context, userID string) (*models.GenerateScheduleResponse, error) {
	const op = "ScheduleService.Generate"

	if userID == "" {
		return nil, errors.InvalidInput(op, nil, "User ID is required")
	}

	logger := s.logger.With().
		Str("operation", op).
		Str("user_id", userID).
		Logger()

	quota := s.resolveQuota(ctx, userID)

	catalog, err := s.videos.UserVideos(ctx, userID)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to load video catalog")
	}
	if len(catalog) == 0 {
		return nil, errors.InvalidInput(op, nil, "No videos available. Please fetch videos first.")
	}

	// The historical exclusion is computed once per run. Uniqueness between
	// days of this run is handled separately by usedVideoIDs below; the two
	// sets have different lifetimes.
	recent, err := s.schedules.RecentlyScheduledVideoIDs(ctx, userID, s.config.LookbackDays)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to load recent schedule history")
	}

	pool := make([]models.Video, 0, len(catalog))
	for _, v := range catalog {
		if !recent[v.ID] {
			pool = append(pool, v)
		}
	}
	if len(pool) == 0 {
		return nil, errors.InvalidInput(op, nil, fmt.Sprintf(
			"No unique videos available. All videos were scheduled in last %d days.",
			s.config.LookbackDays,
		))
	}

	logger.Info().
		Int("catalog", len(catalog)).
		Int("recently_used", len(recent)).
		Int("available", len(pool)).
		Int("quota", quota).
		Msg("Starting schedule generation")

	dates := dateRange(time.Now(), s.config.DaysAhead)
	usedVideoIDs := make(map[string]bool)
	var scheduledDates []string
	totalScheduled := 0

	for _, date := range dates {
		exists, err := s.schedules.ExistsForDate(ctx, userID, date)
		if err != nil {
			logger.Error().Err(err).Str("date", date).Msg("Existence check failed, skipping date")
			continue
		}
		if exists {
			logger.Debug().Str("date", date).Msg("Schedule already exists, skipping")
			continue
		}

		dayPool := make([]models.Video, 0, len(pool))
		for _, v := range pool {
			if !usedVideoIDs[v.ID] {
				dayPool = append(dayPool, v)
			}
		}
		if len(dayPool) == 0 {
			// Pool exhausted by earlier days in this run. A zero-video day
			// is skipped, not committed and not counted as scheduled.
			logger.Info().Str("date", date).Msg("No videos left for date, skipping")
			continue
		}
		if len(dayPool) < quota {
			logger.Warn().
				Str("date", date).
				Int("available", len(dayPool)).
				Int("quota", quota).
				Msg("Fewer videos available than quota, scheduling what remains")
		}

		selected := selectVideos(dayPool, quota, s.rng)
		videoIDs := make([]string, len(selected))
		for i, v := range selected {
			videoIDs[i] = v.ID
			usedVideoIDs[v.ID] = true
		}

		if err := s.schedules.CommitDay(ctx, userID, videoIDs, date); err != nil {
			// One day's failed commit must not abort the remaining dates.
			logger.Error().Err(err).Str("date", date).Msg("Failed to commit day, continuing")
			continue
		}

		scheduledDates = append(scheduledDates, date)
		totalScheduled += len(videoIDs)
		logger.Info().Str("date", date).Int("videos", len(videoIDs)).Msg("Scheduled day")
	}

	if len(scheduledDates) == 0 {
		return nil, errors.InvalidInput(op, nil, fmt.Sprintf(
			"All schedules for next %d days already exist",
			s.config.DaysAhead,
		))
	}

	return &models.GenerateScheduleResponse{
		DaysScheduled:   len(scheduledDates),
		VideosScheduled: totalScheduled,
		Dates:           scheduledDates,
	}, nil
}

// resolveQuota returns the user's configured videos-per-day, falling back to
// the default. Missing settings are a policy fallback, not an error.
func (s *service) resolveQuota(ctx context.Context, userID string) int {
	settings, err := s.users.Settings(ctx, userID)
	if err != nil {
		if !errors.IsNotFound(err) {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to load settings, using default quota")
		}
		return s.config.DefaultVideosPerDay
	}
	if settings.VideosPerDay <= 0 {
		return s.config.DefaultVideosPerDay
	}
	return settings.VideosPerDay
}

func (s *service) Today(ctx context.Context, userID string) ([]models.ScheduleEntry, error) {
	const op = "ScheduleService.Today"

	if userID == "" {
		return nil, errors.InvalidInput(op, nil, "User ID is required")
	}

	today := time.Now().Format(dateFormat)
	entries, err := s.schedules.EntriesForDate(ctx, userID, today)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to load today's schedule")
	}
	return entries, nil
}
