package deepseek

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const apiBaseURL = "https://api.deepseek.com"

// DefaultChunkTargetLen is the target size of one transcript chunk sent per
// chat completion.
const DefaultChunkTargetLen = 7000

type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
}

func NewClient(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 3 * time.Minute},
		apiKey:     apiKey,
		baseURL:    apiBaseURL,
		model:      "deepseek-chat",
	}
}

func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ProcessTranscript runs the prompt template over the transcript in
// sentence-boundary chunks and concatenates the results. The template's
// {{transcript}} placeholder receives each chunk.
func (c *Client) ProcessTranscript(ctx context.Context, transcript, promptTemplate string, chunkTargetLen int) (string, error) {
	if chunkTargetLen <= 0 {
		chunkTargetLen = DefaultChunkTargetLen
	}

	chunks := SplitIntoChunks(transcript, chunkTargetLen)
	parts := make([]string, 0, len(chunks))

	for _, chunk := range chunks {
		prompt := strings.ReplaceAll(promptTemplate, "{{transcript}}", chunk)

		processed, err := c.complete(ctx, prompt)
		if err != nil {
			return "", err
		}
		parts = append(parts, processed)
	}

	return strings.Join(parts, "\n\n"), nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal chat request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to build chat request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "chat request failed")
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return "", errors.Errorf("chat api returned %d", httpResp.StatusCode)
	}

	var resp chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", errors.Wrap(err, "failed to decode chat response")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat api returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

var sentenceEndings = []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}

// SplitIntoChunks cuts text into pieces of roughly targetLen characters,
// preferring to split at a sentence boundary near the target.
func SplitIntoChunks(text string, targetLen int) []string {
	var chunks []string
	remaining := strings.TrimSpace(text)

	for len(remaining) > 0 {
		if len(remaining) <= targetLen {
			chunks = append(chunks, remaining)
			break
		}

		searchEnd := targetLen + 500
		if searchEnd > len(remaining) {
			searchEnd = len(remaining)
		}
		search := remaining[:searchEnd]

		splitIndex := -1
		for _, ending := range sentenceEndings {
			idx := strings.LastIndex(search, ending)
			if idx > targetLen-500 && idx+len(ending) > splitIndex {
				splitIndex = idx + len(ending)
			}
		}
		if splitIndex == -1 {
			splitIndex = targetLen
			// Hard splits must not land inside a multi-byte rune.
			for splitIndex > 0 && !utf8.RuneStart(remaining[splitIndex]) {
				splitIndex--
			}
			if splitIndex == 0 {
				_, size := utf8.DecodeRuneInString(remaining)
				splitIndex = size
			}
		}

		chunks = append(chunks, strings.TrimSpace(remaining[:splitIndex]))
		remaining = strings.TrimSpace(remaining[splitIndex:])
	}

	return chunks
}
