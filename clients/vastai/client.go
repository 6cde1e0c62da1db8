package vastai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

const apiBaseURL = "https://cloud.vast.ai/api/v0"

type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

func NewClient(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiKey:     apiKey,
		baseURL:    apiBaseURL,
	}
}

func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

type Instance struct {
	ID           int    `json:"id"`
	Status       string `json:"status"`
	SSHHost      string `json:"ssh_host,omitempty"`
	SSHPort      int    `json:"ssh_port,omitempty"`
	PublicIPAddr string `json:"public_ipaddr,omitempty"`
}

type ExecResult struct {
	Output  string `json:"output"`
	Success bool   `json:"success"`
}

type offersResponse struct {
	Offers []struct {
		ID int `json:"id"`
	} `json:"offers"`
}

type rentResponse struct {
	NewContract int `json:"new_contract"`
}

type instanceResponse struct {
	ID           int    `json:"id"`
	ActualStatus string `json:"actual_status"`
	SSHHost      string `json:"ssh_host"`
	SSHPort      int    `json:"ssh_port"`
	PublicIPAddr string `json:"public_ipaddr"`
}

type execResponse struct {
	Output string `json:"output"`
}

type logsResponse struct {
	ResultURL string `json:"result_url"`
}

// RentInstance finds the cheapest available offer for the GPU type and rents
// it with a stock pytorch image.
func (c *Client) RentInstance(ctx context.Context, gpuName string) (*Instance, error) {
	params := url.Values{
		"gpu_name": {gpuName},
		"order":    {"dph_total"},
		"limit":    {"1"},
	}

	var offers offersResponse
	if err := c.do(ctx, http.MethodGet, "/bundles?"+params.Encode(), nil, &offers); err != nil {
		return nil, err
	}
	if len(offers.Offers) == 0 {
		return nil, errors.Errorf("no available %s instances found", gpuName)
	}

	body := map[string]interface{}{
		"image":   "pytorch/pytorch:latest",
		"disk":    10,
		"onstart": "",
	}

	var rent rentResponse
	path := fmt.Sprintf("/asks/%d/", offers.Offers[0].ID)
	if err := c.do(ctx, http.MethodPut, path, body, &rent); err != nil {
		return nil, err
	}

	return &Instance{ID: rent.NewContract, Status: "renting"}, nil
}

func (c *Client) InstanceStatus(ctx context.Context, instanceID int) (*Instance, error) {
	var resp instanceResponse
	path := fmt.Sprintf("/instances/%d", instanceID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	return &Instance{
		ID:           resp.ID,
		Status:       resp.ActualStatus,
		SSHHost:      resp.SSHHost,
		SSHPort:      resp.SSHPort,
		PublicIPAddr: resp.PublicIPAddr,
	}, nil
}

// ExecuteCommand runs a shell command on the rented instance.
func (c *Client) ExecuteCommand(ctx context.Context, instanceID int, command string) (*ExecResult, error) {
	var resp execResponse
	path := fmt.Sprintf("/instances/%d/execute", instanceID)
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"command": command}, &resp); err != nil {
		return &ExecResult{Output: err.Error(), Success: false}, nil
	}
	return &ExecResult{Output: resp.Output, Success: true}, nil
}

// ExecuteCommands runs commands sequentially, stopping at nothing: each
// result carries its own success flag.
func (c *Client) ExecuteCommands(ctx context.Context, instanceID int, commands []string) ([]ExecResult, error) {
	results := make([]ExecResult, 0, len(commands))
	for _, command := range commands {
		result, err := c.ExecuteCommand(ctx, instanceID, command)
		if err != nil {
			return results, err
		}
		results = append(results, *result)
	}
	return results, nil
}

// UploadScript writes a script into the instance's workspace via a heredoc
// and marks it executable.
func (c *Client) UploadScript(ctx context.Context, instanceID int, name, content string) error {
	commands := []string{
		fmt.Sprintf("cat > /workspace/%s << 'SCRIPT_EOF'\n%s\nSCRIPT_EOF", name, content),
		fmt.Sprintf("chmod +x /workspace/%s", name),
	}

	results, err := c.ExecuteCommands(ctx, instanceID, commands)
	if err != nil {
		return err
	}
	for _, result := range results {
		if !result.Success {
			return errors.Errorf("script upload failed: %s", result.Output)
		}
	}
	return nil
}

// RequestLogs asks the API to collect the instance's recent output, then
// polls the returned result URL until the log file is ready.
func (c *Client) RequestLogs(ctx context.Context, instanceID int) (string, error) {
	var resp logsResponse
	path := fmt.Sprintf("/instances/request_logs/%d/", instanceID)
	if err := c.do(ctx, http.MethodPut, path, map[string]string{"tail": "1000"}, &resp); err != nil {
		return "", err
	}
	if resp.ResultURL == "" {
		return "", errors.New("vastai api returned no log url")
	}

	for attempt := 0; attempt < 10; attempt++ {
		logs, ready, err := c.fetchLogs(ctx, resp.ResultURL)
		if err != nil {
			return "", err
		}
		if ready {
			return logs, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return "", errors.New("timed out waiting for instance logs")
}

func (c *Client) fetchLogs(ctx context.Context, logURL string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, logURL, nil)
	if err != nil {
		return "", false, errors.Wrap(err, "failed to build log request")
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false, errors.Wrap(err, "failed to fetch logs")
	}
	defer httpResp.Body.Close()

	// The log file appears at the URL only once collection finishes.
	if httpResp.StatusCode == http.StatusNotFound || httpResp.StatusCode == http.StatusForbidden {
		return "", false, nil
	}
	if httpResp.StatusCode != http.StatusOK {
		return "", false, errors.Errorf("log fetch returned %d", httpResp.StatusCode)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", false, errors.Wrap(err, "failed to read logs")
	}
	return string(body), true, nil
}

func (c *Client) StopInstance(ctx context.Context, instanceID int) error {
	path := fmt.Sprintf("/instances/%d/", instanceID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s failed", method, path)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return errors.Errorf("vastai api returned %d for %s", httpResp.StatusCode, path)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode %s response", path)
	}
	return nil
}
