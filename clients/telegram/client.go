package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const apiBaseURL = "https://api.telegram.org"

type Client struct {
	httpClient *http.Client
	botToken   string
	baseURL    string

	// Telegram allows roughly one message per second per chat; the limiter
	// paces sequential document sends.
	limiter *rate.Limiter
}

func NewClient(botToken string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		botToken:   botToken,
		baseURL:    apiBaseURL,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func NewClientWithBaseURL(botToken, baseURL string) *Client {
	c := NewClient(botToken)
	c.baseURL = baseURL
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	return c
}

type apiResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		Username string `json:"username"`
	} `json:"result"`
}

// SendMessage posts a Markdown text message to the chat.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limit wait cancelled")
	}

	body, err := json.Marshal(map[string]string{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	return c.post(ctx, "/sendMessage", "application/json", bytes.NewReader(body))
}

// SendDocument uploads script content as a numbered .txt file with a caption.
func (c *Client) SendDocument(ctx context.Context, chatID, filename, caption, content string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limit wait cancelled")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("chat_id", chatID); err != nil {
		return errors.Wrap(err, "failed to write chat_id field")
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return errors.Wrap(err, "failed to write caption field")
		}
	}
	part, err := writer.CreateFormFile("document", filename)
	if err != nil {
		return errors.Wrap(err, "failed to create document part")
	}
	if _, err := part.Write([]byte(content)); err != nil {
		return errors.Wrap(err, "failed to write document content")
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, "failed to finalize multipart body")
	}

	return c.post(ctx, "/sendDocument", writer.FormDataContentType(), &buf)
}

// SendScripts delivers processed scripts sequentially as numbered files.
// A failed send is counted and the remaining scripts still go out.
func (c *Client) SendScripts(ctx context.Context, chatID string, scripts []string) (sent, failed int) {
	total := len(scripts)
	for i, script := range scripts {
		filename := fmt.Sprintf("%d_script.txt", i+1)
		caption := fmt.Sprintf("Script %d/%d", i+1, total)

		if err := c.SendDocument(ctx, chatID, filename, caption, script); err != nil {
			failed++
			continue
		}
		sent++
	}
	return sent, failed
}

// TestBot verifies the bot token and returns the bot username.
func (c *Client) TestBot(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.methodURL("/getMe"), nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to build request")
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "getMe request failed")
	}
	defer httpResp.Body.Close()

	var resp apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", errors.Wrap(err, "failed to decode getMe response")
	}
	if !resp.OK {
		return "", errors.New("bot token rejected")
	}
	return resp.Result.Username, nil
}

func (c *Client) post(ctx context.Context, method, contentType string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), body)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", contentType)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s request failed", method)
	}
	defer httpResp.Body.Close()

	var resp apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return errors.Wrapf(err, "failed to decode %s response", method)
	}
	if !resp.OK {
		return errors.Errorf("telegram api rejected %s", method)
	}
	return nil
}

func (c *Client) methodURL(method string) string {
	return c.baseURL + "/bot" + c.botToken + method
}
