package machine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"barista/internal/services"
)

func TestRunSubmitsProgramAndCollectsAcks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/program" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer token" {
			t.Errorf("missing auth header")
		}
		var req struct {
			BrewID   int64    `json:"brew_id"`
			Commands []string `json:"commands"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.BrewID != 7 || len(req.Commands) != 2 {
			t.Errorf("unexpected request: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accepted": true,
			"acks": []map[string]string{
				{"command": req.Commands[0], "status": "ok"},
				{"command": req.Commands[1], "status": "ok"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIToken: "token"})
	acks, err := client.Run(context.Background(), 7, []string{"G-12", "H-88"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(acks) != 2 || acks[0].Command != "G-12" {
		t.Fatalf("unexpected acks: %+v", acks)
	}
}

func TestRunRejectionIsMachineError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accepted": false,
			"error":    "water tank empty",
		})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.Run(context.Background(), 1, []string{"G-12"})
	if !errors.Is(err, services.ErrMachine) {
		t.Fatalf("expected machine error, got %v", err)
	}
	if services.Retryable(err) {
		t.Fatal("machine rejection must not be retryable")
	}
}

func TestRunFailedPhaseIsMachineError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accepted": true,
			"acks": []map[string]string{
				{"command": "G-12", "status": "ok"},
				{"command": "S-2-28", "status": "fault", "detail": "pump stall"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	acks, err := client.Run(context.Background(), 1, []string{"G-12", "S-2-28"})
	if !errors.Is(err, services.ErrMachine) {
		t.Fatalf("expected machine error, got %v", err)
	}
	if len(acks) != 2 {
		t.Fatalf("expected partial acks returned, got %+v", acks)
	}
}

func TestRunTimeoutIsTimeoutError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]any{"accepted": true})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL},
		WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	_, err := client.Run(context.Background(), 1, []string{"G-12"})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if !services.Retryable(err) {
		t.Fatal("timeouts must be retryable")
	}
}

type flakyTransport struct {
	failures int
	calls    int
	err      error
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls++
	if f.calls <= f.failures {
		if f.err != nil {
			return nil, f.err
		}
		return nil, errors.New("connection refused")
	}
	return http.DefaultTransport.RoundTrip(req)
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "deadline exceeded" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestRunResendsUndeliveredProgram(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accepted": true,
			"acks":     []map[string]string{{"command": "G-12", "status": "ok"}},
		})
	}))
	defer server.Close()

	transport := &flakyTransport{failures: 2}
	var delays []time.Duration
	client := NewClient(Config{BaseURL: server.URL},
		WithHTTPClient(&http.Client{Transport: transport}),
		WithRetryBackoff(time.Millisecond),
		WithSleeper(func(d time.Duration) { delays = append(delays, d) }))

	acks, err := client.Run(context.Background(), 1, []string{"G-12"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(acks) != 1 {
		t.Fatalf("unexpected acks: %+v", acks)
	}
	if transport.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", transport.calls)
	}
	if len(delays) != 2 || delays[1] != 2*delays[0] {
		t.Fatalf("expected doubling backoff, got %v", delays)
	}
}

func TestRunGivesUpAfterMaxAttempts(t *testing.T) {
	transport := &flakyTransport{failures: 10}
	client := NewClient(Config{BaseURL: "http://127.0.0.1:0"},
		WithHTTPClient(&http.Client{Transport: transport}),
		WithRetryMaxAttempts(2),
		WithSleeper(func(time.Duration) {}))

	_, err := client.Run(context.Background(), 1, []string{"G-12"})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if transport.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", transport.calls)
	}
}

func TestRunDoesNotResendAfterTimeout(t *testing.T) {
	// The request may have reached the controller; resending could pour twice.
	transport := &flakyTransport{failures: 10, err: timeoutError{}}
	client := NewClient(Config{BaseURL: "http://127.0.0.1:0"},
		WithHTTPClient(&http.Client{Transport: transport}),
		WithSleeper(func(time.Duration) {}))

	_, err := client.Run(context.Background(), 1, []string{"G-12"})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if transport.calls != 1 {
		t.Fatalf("expected a single attempt after timeout, got %d", transport.calls)
	}
}

func TestRunEmptyProgramRefused(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:0"})
	_, err := client.Run(context.Background(), 1, nil)
	if !errors.Is(err, services.ErrMachine) {
		t.Fatalf("expected machine error for empty program, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/status" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
}
