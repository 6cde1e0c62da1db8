package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"clipflow/models"
)

type fakeUserRepo struct {
	users    []models.User
	channels map[string][]models.SourceChannel
}

func (f *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return nil, errors.New("not found")
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return nil, errors.New("not found")
}

func (f *fakeUserRepo) AllUsers(ctx context.Context) ([]models.User, error) {
	return f.users, nil
}

func (f *fakeUserRepo) Settings(ctx context.Context, userID string) (*models.UserSettings, error) {
	return nil, nil
}

func (f *fakeUserRepo) SaveSettings(ctx context.Context, settings *models.UserSettings) error {
	return nil
}

func (f *fakeUserRepo) UserChannels(ctx context.Context, userID string) ([]models.SourceChannel, error) {
	return f.channels[userID], nil
}

func (f *fakeUserRepo) SaveChannel(ctx context.Context, channel *models.SourceChannel) error {
	return nil
}

func (f *fakeUserRepo) DeleteChannel(ctx context.Context, userID, channelID string) error {
	return nil
}

type fakeVideoRepo struct {
	saved map[string][]models.Video
}

func newFakeVideoRepo() *fakeVideoRepo {
	return &fakeVideoRepo{saved: make(map[string][]models.Video)}
}

func (f *fakeVideoRepo) SaveVideos(ctx context.Context, channelID string, videos []models.Video) error {
	f.saved[channelID] = append(f.saved[channelID], videos...)
	return nil
}

func (f *fakeVideoRepo) UserVideos(ctx context.Context, userID string) ([]models.Video, error) {
	return nil, nil
}

func (f *fakeVideoRepo) ChannelVideos(ctx context.Context, channelID string) ([]models.Video, error) {
	return f.saved[channelID], nil
}

type fakeSource struct {
	videos       map[string][]models.Video
	failChannels map[string]bool
	handles      map[string]string
}

func (f *fakeSource) FetchChannelVideos(ctx context.Context, channelID string, minDurationSeconds, maxResults int) ([]models.Video, error) {
	if f.failChannels[channelID] {
		return nil, errors.New("quota exceeded")
	}
	return f.videos[channelID], nil
}

func (f *fakeSource) ResolveHandle(ctx context.Context, handle string) (string, error) {
	if id, ok := f.handles[handle]; ok {
		return id, nil
	}
	return "", errors.New("channel not found")
}

func TestRefreshUserContinuesPastFailures(t *testing.T) {
	users := &fakeUserRepo{channels: map[string][]models.SourceChannel{
		"user-1": {
			{ID: "ch-1", UserID: "user-1", ChannelURL: "https://www.youtube.com/channel/UCgood"},
			{ID: "ch-2", UserID: "user-1", ChannelURL: "https://www.youtube.com/channel/UCbad"},
		},
	}}
	videos := newFakeVideoRepo()
	source := &fakeSource{
		videos: map[string][]models.Video{
			"UCgood": {{VideoID: "v1", Title: "First"}, {VideoID: "v2", Title: "Second"}},
		},
		failChannels: map[string]bool{"UCbad": true},
	}

	svc := NewService(users, videos, source, Config{}, zerolog.Nop())
	results, err := svc.RefreshUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("RefreshUser: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if !results[0].Success || results[0].VideosCount != 2 {
		t.Errorf("first channel result = %+v", results[0])
	}
	if results[1].Success || results[1].Error == "" {
		t.Errorf("second channel should have failed: %+v", results[1])
	}
	if got := len(videos.saved["ch-1"]); got != 2 {
		t.Errorf("saved %d videos for ch-1, want 2", got)
	}
}

func TestRefreshUserRequiresUserID(t *testing.T) {
	svc := NewService(&fakeUserRepo{}, newFakeVideoRepo(), &fakeSource{}, Config{}, zerolog.Nop())
	if _, err := svc.RefreshUser(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestRefreshUserNoChannels(t *testing.T) {
	svc := NewService(&fakeUserRepo{}, newFakeVideoRepo(), &fakeSource{}, Config{}, zerolog.Nop())
	if _, err := svc.RefreshUser(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error when no channels configured")
	}
}

func TestRefreshUserResolvesHandles(t *testing.T) {
	users := &fakeUserRepo{channels: map[string][]models.SourceChannel{
		"user-1": {{ID: "ch-1", UserID: "user-1", ChannelURL: "https://www.youtube.com/@somecreator"}},
	}}
	videos := newFakeVideoRepo()
	source := &fakeSource{
		videos:  map[string][]models.Video{"UCresolved": {{VideoID: "v1"}}},
		handles: map[string]string{"@somecreator": "UCresolved"},
	}

	svc := NewService(users, videos, source, Config{}, zerolog.Nop())
	results, err := svc.RefreshUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("RefreshUser: %v", err)
	}
	if !results[0].Success || results[0].VideosCount != 1 {
		t.Errorf("result = %+v", results[0])
	}
}

func TestRefreshAllUsers(t *testing.T) {
	users := &fakeUserRepo{
		users: []models.User{{ID: "user-1"}, {ID: "user-2"}},
		channels: map[string][]models.SourceChannel{
			"user-1": {{ID: "ch-1", ChannelURL: "https://www.youtube.com/channel/UCone"}},
			"user-2": {{ID: "ch-2", ChannelURL: "https://www.youtube.com/channel/UCtwo"}},
		},
	}
	videos := newFakeVideoRepo()
	source := &fakeSource{videos: map[string][]models.Video{
		"UCone": {{VideoID: "a"}},
		"UCtwo": {{VideoID: "b"}},
	}}

	svc := NewService(users, videos, source, Config{}, zerolog.Nop())
	all, err := svc.RefreshAllUsers(context.Background())
	if err != nil {
		t.Fatalf("RefreshAllUsers: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got results for %d users, want 2", len(all))
	}
}

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns:media="http://search.yahoo.com/mrss/" xmlns="http://www.w3.org/2005/Atom">
  <title>Test Channel</title>
  <entry>
    <id>yt:video:abc123</id>
    <yt:videoId>abc123</yt:videoId>
    <title>Feed Video</title>
    <media:group>
      <media:community>
        <media:statistics views="5000"/>
      </media:community>
    </media:group>
  </entry>
</feed>`

func TestRefreshUserFeedFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("channel_id"); got != "UCfeed" {
			t.Errorf("channel_id = %q", got)
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(testFeed))
	}))
	defer server.Close()

	users := &fakeUserRepo{channels: map[string][]models.SourceChannel{
		"user-1": {{ID: "ch-1", UserID: "user-1", ChannelURL: "https://www.youtube.com/channel/UCfeed"}},
	}}
	videos := newFakeVideoRepo()

	svc := NewService(users, videos, nil, Config{}, zerolog.Nop()).(*service)
	svc.feedURL = server.URL + "?channel_id=%s"

	results, err := svc.RefreshUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("RefreshUser: %v", err)
	}
	if !results[0].Success || results[0].VideosCount != 1 {
		t.Fatalf("result = %+v", results[0])
	}
	saved := videos.saved["ch-1"]
	if saved[0].VideoID != "abc123" || saved[0].Views != 5000 {
		t.Errorf("saved video = %+v", saved[0])
	}
}
