package youtube

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"clipflow/models"

	"github.com/pkg/errors"
)

const apiBaseURL = "https://www.googleapis.com/youtube/v3"

// batchSize is the maximum number of video ids per details request.
const batchSize = 50

// maxPlaylistItems caps how deep we page into the uploads playlist.
const maxPlaylistItems = 2000

type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

func NewClient(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		baseURL:    apiBaseURL,
	}
}

// NewClientWithBaseURL is used by tests to point at a stub server.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

type channelListResponse struct {
	Items []struct {
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type playlistItemsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type videoListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title      string `json:"title"`
			Thumbnails struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
		} `json:"statistics"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type searchResponse struct {
	Items []struct {
		Snippet struct {
			ChannelID string `json:"channelId"`
		} `json:"snippet"`
	} `json:"items"`
}

// FetchChannelVideos returns the channel's uploaded videos filtered by
// minimum duration, sorted by views descending and capped at maxResults.
func (c *Client) FetchChannelVideos(ctx context.Context, channelID string, minDurationSeconds, maxResults int) ([]models.Video, error) {
	uploadsID, err := c.uploadsPlaylistID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	videoIDs, err := c.playlistVideoIDs(ctx, uploadsID)
	if err != nil {
		return nil, err
	}

	videos := make([]models.Video, 0, len(videoIDs))
	for i := 0; i < len(videoIDs); i += batchSize {
		end := i + batchSize
		if end > len(videoIDs) {
			end = len(videoIDs)
		}
		batch, err := c.videoDetails(ctx, videoIDs[i:end])
		if err != nil {
			return nil, err
		}
		videos = append(videos, batch...)
	}

	filtered := videos[:0]
	for _, v := range videos {
		if v.DurationSeconds >= minDurationSeconds {
			filtered = append(filtered, v)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Views > filtered[j].Views
	})
	if len(filtered) > maxResults {
		filtered = filtered[:maxResults]
	}
	return filtered, nil
}

// ResolveHandle looks up the channel id behind an @handle.
func (c *Client) ResolveHandle(ctx context.Context, handle string) (string, error) {
	params := url.Values{
		"part":       {"snippet"},
		"q":          {handle},
		"type":       {"channel"},
		"maxResults": {"1"},
		"key":        {c.apiKey},
	}

	var resp searchResponse
	if err := c.get(ctx, "/search", params, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 {
		return "", errors.Errorf("channel not found for handle %s", handle)
	}
	return resp.Items[0].Snippet.ChannelID, nil
}

func (c *Client) uploadsPlaylistID(ctx context.Context, channelID string) (string, error) {
	params := url.Values{
		"part": {"contentDetails"},
		"id":   {channelID},
		"key":  {c.apiKey},
	}

	var resp channelListResponse
	if err := c.get(ctx, "/channels", params, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 {
		return "", errors.Errorf("channel %s not found", channelID)
	}
	return resp.Items[0].ContentDetails.RelatedPlaylists.Uploads, nil
}

func (c *Client) playlistVideoIDs(ctx context.Context, playlistID string) ([]string, error) {
	var ids []string
	pageToken := ""

	for {
		params := url.Values{
			"part":       {"contentDetails"},
			"playlistId": {playlistID},
			"maxResults": {"50"},
			"key":        {c.apiKey},
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var resp playlistItemsResponse
		if err := c.get(ctx, "/playlistItems", params, &resp); err != nil {
			return nil, err
		}

		for _, item := range resp.Items {
			ids = append(ids, item.ContentDetails.VideoID)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" || len(ids) >= maxPlaylistItems {
			break
		}
	}

	return ids, nil
}

func (c *Client) videoDetails(ctx context.Context, videoIDs []string) ([]models.Video, error) {
	params := url.Values{
		"part": {"snippet,statistics,contentDetails"},
		"id":   {strings.Join(videoIDs, ",")},
		"key":  {c.apiKey},
	}

	var resp videoListResponse
	if err := c.get(ctx, "/videos", params, &resp); err != nil {
		return nil, err
	}

	videos := make([]models.Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		views, _ := strconv.ParseInt(item.Statistics.ViewCount, 10, 64)
		videos = append(videos, models.Video{
			VideoID:         item.ID,
			Title:           item.Snippet.Title,
			Views:           views,
			DurationSeconds: ParseDuration(item.ContentDetails.Duration),
			ThumbnailURL:    item.Snippet.Thumbnails.High.URL,
		})
	}
	return videos, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "request to %s failed", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("youtube api returned %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode %s response", path)
	}
	return nil
}

var durationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseDuration converts an ISO-8601 video duration such as PT1H2M3S into
// seconds. Malformed input parses to 0.
func ParseDuration(iso string) int {
	match := durationPattern.FindStringSubmatch(iso)
	if match == nil {
		return 0
	}

	seconds := 0
	for i, multiplier := range []int{3600, 60, 1} {
		if match[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(match[i+1])
		if err != nil {
			return 0
		}
		seconds += n * multiplier
	}
	return seconds
}
