package vastai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRentInstance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/bundles"):
			if got := r.URL.Query().Get("gpu_name"); got != "RTX 4090" {
				t.Errorf("gpu_name = %q, want RTX 4090", got)
			}
			w.Write([]byte(`{"offers":[{"id":123}]}`))
		case r.URL.Path == "/asks/123/":
			if r.Method != http.MethodPut {
				t.Errorf("method = %s, want PUT", r.Method)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
				t.Errorf("auth header = %q", got)
			}
			w.Write([]byte(`{"new_contract":456,"success":true}`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClientWithBaseURL("test-key", server.URL)
	instance, err := client.RentInstance(context.Background(), "RTX 4090")
	if err != nil {
		t.Fatalf("RentInstance: %v", err)
	}
	if instance.ID != 456 {
		t.Errorf("instance ID = %d, want 456", instance.ID)
	}
}

func TestRentInstanceNoOffers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"offers":[]}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("test-key", server.URL)
	if _, err := client.RentInstance(context.Background(), "H100"); err == nil {
		t.Fatal("expected error when no offers available")
	}
}

func TestInstanceStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/instances/456" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"id":456,"actual_status":"running","ssh_host":"ssh4.vast.ai","ssh_port":12345,"public_ipaddr":"1.2.3.4"}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("test-key", server.URL)
	instance, err := client.InstanceStatus(context.Background(), 456)
	if err != nil {
		t.Fatalf("InstanceStatus: %v", err)
	}
	if instance.Status != "running" {
		t.Errorf("status = %q, want running", instance.Status)
	}
	if instance.SSHPort != 12345 {
		t.Errorf("ssh port = %d", instance.SSHPort)
	}
}

func TestExecuteCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/instances/456/execute" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"output":"hello\n"}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("test-key", server.URL)
	result, err := client.ExecuteCommand(context.Background(), 456, "echo hello")
	if err != nil {
		t.Fatalf("ExecuteCommand: %v", err)
	}
	if !result.Success {
		t.Error("expected success")
	}
	if result.Output != "hello\n" {
		t.Errorf("output = %q", result.Output)
	}
}

func TestExecuteCommandFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClientWithBaseURL("test-key", server.URL)
	result, err := client.ExecuteCommand(context.Background(), 456, "echo hello")
	if err != nil {
		t.Fatalf("ExecuteCommand: %v", err)
	}
	if result.Success {
		t.Error("expected failure result on bad gateway")
	}
}

func TestUploadScript(t *testing.T) {
	var commands []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/instances/456/execute" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req struct {
			Command string `json:"command"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode command: %v", err)
		}
		commands = append(commands, req.Command)
		w.Write([]byte(`{"output":""}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("test-key", server.URL)
	if err := client.UploadScript(context.Background(), 456, "tts.py", "print('hi')"); err != nil {
		t.Fatalf("UploadScript: %v", err)
	}
	if len(commands) != 2 {
		t.Fatalf("got %d commands, want 2", len(commands))
	}
	if !strings.Contains(commands[0], "cat > /workspace/tts.py") || !strings.Contains(commands[0], "print('hi')") {
		t.Errorf("write command = %q", commands[0])
	}
	if commands[1] != "chmod +x /workspace/tts.py" {
		t.Errorf("chmod command = %q", commands[1])
	}
}

func TestRequestLogs(t *testing.T) {
	var logRequests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/instances/request_logs/456/":
			if r.Method != http.MethodPut {
				t.Errorf("method = %s, want PUT", r.Method)
			}
			w.Write([]byte(`{"result_url":"` + serverURL(r) + `/logs/456.txt"}`))
		case "/logs/456.txt":
			logRequests++
			// First poll misses, the log file shows up on the second.
			if logRequests == 1 {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write([]byte("booting\nready\n"))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClientWithBaseURL("test-key", server.URL)
	logs, err := client.RequestLogs(context.Background(), 456)
	if err != nil {
		t.Fatalf("RequestLogs: %v", err)
	}
	if logs != "booting\nready\n" {
		t.Errorf("logs = %q", logs)
	}
	if logRequests != 2 {
		t.Errorf("log fetches = %d, want 2", logRequests)
	}
}

func serverURL(r *http.Request) string {
	return "http://" + r.Host
}

func TestStopInstance(t *testing.T) {
	var gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("test-key", server.URL)
	if err := client.StopInstance(context.Background(), 456); err != nil {
		t.Fatalf("StopInstance: %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Errorf("method = %s, want DELETE", gotMethod)
	}
}
