package supadata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const apiBaseURL = "https://api.supadata.ai/v1"

// ErrKeyExhausted marks a key that hit its quota or was rejected; the caller
// rotates to the next key in the pool.
var ErrKeyExhausted = errors.New("transcript api key exhausted")

const (
	pollInterval    = 5 * time.Second
	maxPollAttempts = 60
)

type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		baseURL:    apiBaseURL,
	}
}

func NewClientWithBaseURL(baseURL string) *Client {
	c := NewClient()
	c.baseURL = baseURL
	return c
}

type transcriptResponse struct {
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
	Content string `json:"content"`
	Text    string `json:"text"`
	Error   string `json:"error"`
}

// FetchTranscript requests the plain-text transcript for a YouTube video.
// Large videos come back as a 202 job that is polled to completion.
func (c *Client) FetchTranscript(ctx context.Context, videoID, apiKey string) (string, error) {
	youtubeURL := "https://www.youtube.com/watch?v=" + videoID

	params := url.Values{
		"url":  {youtubeURL},
		"text": {"true"},
		"mode": {"auto"},
	}

	resp, err := c.get(ctx, "/transcript?"+params.Encode(), apiKey)
	if err != nil {
		return "", err
	}

	if resp.JobID != "" {
		return c.pollJob(ctx, resp.JobID, apiKey)
	}
	return transcriptText(resp)
}

func (c *Client) pollJob(ctx context.Context, jobID, apiKey string) (string, error) {
	for attempt := 0; attempt < maxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", errors.Wrap(ctx.Err(), "transcript polling cancelled")
		case <-time.After(pollInterval):
		}

		resp, err := c.get(ctx, "/transcript/"+jobID, apiKey)
		if err != nil {
			if errors.Is(err, ErrKeyExhausted) {
				return "", err
			}
			continue
		}

		switch resp.Status {
		case "completed":
			return transcriptText(resp)
		case "failed":
			return "", errors.Errorf("transcript job failed: %s", resp.Error)
		case "queued", "active":
			continue
		default:
			return "", errors.Errorf("unknown transcript job status: %s", resp.Status)
		}
	}

	return "", errors.New("transcript job polling timed out")
}

func (c *Client) get(ctx context.Context, path, apiKey string) (*transcriptResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "transcript request failed")
	}
	defer httpResp.Body.Close()

	switch httpResp.StatusCode {
	case http.StatusOK, http.StatusAccepted:
	case http.StatusUnauthorized, http.StatusTooManyRequests:
		return nil, ErrKeyExhausted
	default:
		return nil, errors.Errorf("transcript api returned %d", httpResp.StatusCode)
	}

	var resp transcriptResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, errors.Wrap(err, "failed to decode transcript response")
	}
	return &resp, nil
}

func transcriptText(resp *transcriptResponse) (string, error) {
	text := resp.Content
	if text == "" {
		text = resp.Text
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("transcript api returned no text")
	}
	return text, nil
}
