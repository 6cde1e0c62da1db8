package schedule

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"clipflow/errors"
	"clipflow/models"

	"github.com/rs/zerolog"
)

type fakeUserRepo struct {
	settings *models.UserSettings
}

func (f *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return nil, errors.NotFound("fake", nil, "not implemented")
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return nil, errors.NotFound("fake", nil, "not implemented")
}

func (f *fakeUserRepo) AllUsers(ctx context.Context) ([]models.User, error) { return nil, nil }

func (f *fakeUserRepo) Settings(ctx context.Context, userID string) (*models.UserSettings, error) {
	if f.settings == nil {
		return nil, errors.NotFound("fake", nil, "Settings not found")
	}
	return f.settings, nil
}

func (f *fakeUserRepo) SaveSettings(ctx context.Context, settings *models.UserSettings) error {
	return nil
}

func (f *fakeUserRepo) UserChannels(ctx context.Context, userID string) ([]models.SourceChannel, error) {
	return nil, nil
}

func (f *fakeUserRepo) SaveChannel(ctx context.Context, channel *models.SourceChannel) error {
	return nil
}

func (f *fakeUserRepo) DeleteChannel(ctx context.Context, userID, channelID string) error {
	return nil
}

type fakeVideoRepo struct {
	catalog []models.Video
}

func (f *fakeVideoRepo) SaveVideos(ctx context.Context, channelID string, videos []models.Video) error {
	return nil
}

func (f *fakeVideoRepo) UserVideos(ctx context.Context, userID string) ([]models.Video, error) {
	return f.catalog, nil
}

func (f *fakeVideoRepo) ChannelVideos(ctx context.Context, channelID string) ([]models.Video, error) {
	return nil, nil
}

type fakeScheduleRepo struct {
	existing  map[string]bool
	recent    map[string]bool
	committed map[string][]string
	failDates map[string]bool
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{
		existing:  make(map[string]bool),
		recent:    make(map[string]bool),
		committed: make(map[string][]string),
		failDates: make(map[string]bool),
	}
}

func (f *fakeScheduleRepo) ExistsForDate(ctx context.Context, userID, date string) (bool, error) {
	return f.existing[date], nil
}

func (f *fakeScheduleRepo) CommitDay(ctx context.Context, userID string, videoIDs []string, date string) error {
	if f.failDates[date] {
		return fmt.Errorf("simulated store failure for %s", date)
	}
	f.committed[date] = videoIDs
	f.existing[date] = true
	return nil
}

func (f *fakeScheduleRepo) RecentlyScheduledVideoIDs(ctx context.Context, userID string, lookbackDays int) (map[string]bool, error) {
	return f.recent, nil
}

func (f *fakeScheduleRepo) EntriesForDate(ctx context.Context, userID, date string) ([]models.ScheduleEntry, error) {
	return nil, nil
}

func (f *fakeScheduleRepo) UpdateEntry(ctx context.Context, entry *models.ScheduleEntry) error {
	return nil
}

func testConfig() Config {
	return Config{DaysAhead: 7, LookbackDays: 15, DefaultVideosPerDay: 16}
}

func newTestService(users *fakeUserRepo, videos *fakeVideoRepo, schedules *fakeScheduleRepo) Service {
	return NewService(
		users,
		videos,
		schedules,
		testConfig(),
		zerolog.Nop(),
		rand.New(rand.NewSource(1)),
	)
}

func TestGenerateFullWeek(t *testing.T) {
	schedules := newFakeScheduleRepo()
	svc := newTestService(
		&fakeUserRepo{},
		&fakeVideoRepo{catalog: makePool(200)},
		schedules,
	)

	result, err := svc.Generate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if result.DaysScheduled != 7 {
		t.Errorf("expected 7 days scheduled, got %d", result.DaysScheduled)
	}
	if result.VideosScheduled != 112 {
		t.Errorf("expected 112 videos scheduled, got %d", result.VideosScheduled)
	}
	if len(result.Dates) != 7 {
		t.Fatalf("expected 7 dates, got %d", len(result.Dates))
	}

	// Cross-day uniqueness: no video id may repeat anywhere in the run.
	seen := make(map[string]string)
	for _, date := range result.Dates {
		ids := schedules.committed[date]
		if len(ids) != 16 {
			t.Errorf("date %s has %d videos, expected 16", date, len(ids))
		}
		for _, id := range ids {
			if prev, ok := seen[id]; ok {
				t.Errorf("video %s scheduled on both %s and %s", id, prev, date)
			}
			seen[id] = date
		}
	}
}

func TestGenerateRequiresUserID(t *testing.T) {
	svc := newTestService(&fakeUserRepo{}, &fakeVideoRepo{catalog: makePool(10)}, newFakeScheduleRepo())

	_, err := svc.Generate(context.Background(), "")
	if err == nil {
		t.Fatal("expected error for empty user id")
	}
	if err.Error() != "User ID is required" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestGenerateEmptyCatalog(t *testing.T) {
	svc := newTestService(&fakeUserRepo{}, &fakeVideoRepo{}, newFakeScheduleRepo())

	_, err := svc.Generate(context.Background(), "user-1")
	if err == nil {
		t.Fatal("expected error for empty catalog")
	}
	if err.Error() != "No videos available. Please fetch videos first." {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestGenerateAllVideosRecentlyUsed(t *testing.T) {
	catalog := makePool(20)
	schedules := newFakeScheduleRepo()
	for _, v := range catalog {
		schedules.recent[v.ID] = true
	}
	svc := newTestService(&fakeUserRepo{}, &fakeVideoRepo{catalog: catalog}, schedules)

	_, err := svc.Generate(context.Background(), "user-1")
	if err == nil {
		t.Fatal("expected error when the whole catalog was recently used")
	}
	expected := "No unique videos available. All videos were scheduled in last 15 days."
	if err.Error() != expected {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if len(schedules.committed) != 0 {
		t.Error("exhausted pool must be a hard stop, not a per-day skip")
	}
}

func TestGenerateExcludesRecentVideos(t *testing.T) {
	catalog := makePool(40)
	schedules := newFakeScheduleRepo()
	// Mark half of the catalog as recently used
	for i := 0; i < 20; i++ {
		schedules.recent[catalog[i].ID] = true
	}
	svc := newTestService(&fakeUserRepo{}, &fakeVideoRepo{catalog: catalog}, schedules)

	result, err := svc.Generate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for _, date := range result.Dates {
		for _, id := range schedules.committed[date] {
			if schedules.recent[id] {
				t.Errorf("recently used video %s appeared in %s", id, date)
			}
		}
	}
}

func TestGenerateIdempotent(t *testing.T) {
	schedules := newFakeScheduleRepo()
	svc := newTestService(&fakeUserRepo{}, &fakeVideoRepo{catalog: makePool(200)}, schedules)

	if _, err := svc.Generate(context.Background(), "user-1"); err != nil {
		t.Fatalf("first Generate failed: %v", err)
	}

	_, err := svc.Generate(context.Background(), "user-1")
	if err == nil {
		t.Fatal("expected second run to report all schedules existing")
	}
	if err.Error() != "All schedules for next 7 days already exist" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestGenerateSmallCatalogExhaustsFirstDay(t *testing.T) {
	schedules := newFakeScheduleRepo()
	svc := newTestService(&fakeUserRepo{}, &fakeVideoRepo{catalog: makePool(10)}, schedules)

	result, err := svc.Generate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// Day one draws min(16, 10) = 10 and exhausts the pool; the remaining
	// days draw nothing and are not counted as scheduled.
	if result.DaysScheduled != 1 {
		t.Errorf("expected 1 day scheduled, got %d", result.DaysScheduled)
	}
	if result.VideosScheduled != 10 {
		t.Errorf("expected 10 videos scheduled, got %d", result.VideosScheduled)
	}
	if len(schedules.committed) != 1 {
		t.Errorf("expected exactly 1 committed day, got %d", len(schedules.committed))
	}
}

func TestGenerateUnderfillTolerated(t *testing.T) {
	// 20 videos < 7 x 16 but non-empty: the run still succeeds with the sum
	// of per-day draws.
	schedules := newFakeScheduleRepo()
	svc := newTestService(&fakeUserRepo{}, &fakeVideoRepo{catalog: makePool(20)}, schedules)

	result, err := svc.Generate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if result.VideosScheduled != 20 {
		t.Errorf("expected all 20 videos scheduled, got %d", result.VideosScheduled)
	}
	if result.DaysScheduled != 2 {
		t.Errorf("expected 2 days (16 + 4), got %d", result.DaysScheduled)
	}
	if got := len(schedules.committed[result.Dates[1]]); got != 4 {
		t.Errorf("expected the second day to hold 4 videos, got %d", got)
	}
}

func TestGenerateUsesConfiguredQuota(t *testing.T) {
	schedules := newFakeScheduleRepo()
	users := &fakeUserRepo{settings: &models.UserSettings{UserID: "user-1", VideosPerDay: 4}}
	svc := newTestService(users, &fakeVideoRepo{catalog: makePool(200)}, schedules)

	result, err := svc.Generate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if result.VideosScheduled != 28 {
		t.Errorf("expected 7 x 4 = 28 videos, got %d", result.VideosScheduled)
	}
	for date, ids := range schedules.committed {
		if len(ids) != 4 {
			t.Errorf("date %s holds %d videos, expected 4", date, len(ids))
		}
	}
}

func TestGenerateContinuesPastCommitFailure(t *testing.T) {
	schedules := newFakeScheduleRepo()
	svc := newTestService(&fakeUserRepo{}, &fakeVideoRepo{catalog: makePool(200)}, schedules)

	// Fail the third day's commit only.
	failDate := dateRangeForTest(2)
	schedules.failDates[failDate] = true

	result, err := svc.Generate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if result.DaysScheduled != 6 {
		t.Errorf("expected 6 days scheduled, got %d", result.DaysScheduled)
	}
	if result.VideosScheduled != 96 {
		t.Errorf("expected 96 videos scheduled, got %d", result.VideosScheduled)
	}
	for _, date := range result.Dates {
		if date == failDate {
			t.Errorf("failed date %s must not be reported as scheduled", failDate)
		}
	}
}

func TestGenerateAllCommitsFail(t *testing.T) {
	schedules := newFakeScheduleRepo()
	for i := 0; i < 7; i++ {
		schedules.failDates[dateRangeForTest(i)] = true
	}
	svc := newTestService(&fakeUserRepo{}, &fakeVideoRepo{catalog: makePool(200)}, schedules)

	_, err := svc.Generate(context.Background(), "user-1")
	if err == nil {
		t.Fatal("expected zero-progress run to fail")
	}
	if !strings.Contains(err.Error(), "already exist") {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

// dateRangeForTest mirrors the service's date computation for offset days
// from today.
func dateRangeForTest(offset int) string {
	return dateRange(time.Now(), offset+1)[offset]
}
