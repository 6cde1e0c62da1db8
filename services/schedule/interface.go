package schedule

import (
	"context"

	"clipflow/models"
)

type Service interface {
	// Generate materializes daily schedules for every open date in the
	// horizon. It fails as a whole only when preconditions fail or when no
	// date ends up newly scheduled.
	Generate(ctx context.Context, userID string) (*models.GenerateScheduleResponse, error)

	// Today returns the user's schedule for the current date.
	Today(ctx context.Context, userID string) ([]models.ScheduleEntry, error)
}

type Config struct {
	// DaysAhead is the horizon of one run, today inclusive.
	DaysAhead int

	// LookbackDays is the trailing window for the recently-used exclusion.
	LookbackDays int

	// DefaultVideosPerDay applies when the user has no quota configured.
	DefaultVideosPerDay int
}
