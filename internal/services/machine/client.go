package machine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"barista/internal/services"
)

const (
	defaultHTTPTimeout   = 30 * time.Second
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 500 * time.Millisecond
)

// Config captures the runtime settings required to talk to the espresso
// machine controller.
type Config struct {
	BaseURL        string
	APIToken       string
	TimeoutSeconds int
}

// Client submits compiled brew programs to the machine controller over HTTP.
type Client struct {
	cfg          Config
	httpClient   *http.Client
	maxAttempts  int
	retryBackoff time.Duration
	sleeper      func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts bounds how often an undelivered program is resent.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.maxAttempts = attempts
		}
	}
}

// WithRetryBackoff sets the initial delay between resend attempts.
func WithRetryBackoff(backoff time.Duration) Option {
	return func(c *Client) {
		if backoff > 0 {
			c.retryBackoff = backoff
		}
	}
}

// WithSleeper replaces the retry delay mechanism, for tests.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// NewClient constructs a machine client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIToken:       strings.TrimSpace(cfg.APIToken),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

type programRequest struct {
	BrewID   int64    `json:"brew_id"`
	Commands []string `json:"commands"`
}

// Ack reports the controller's result for one program command.
type Ack struct {
	Command string `json:"command"`
	Status  string `json:"status"`
	Detail  string `json:"detail,omitempty"`
}

type programResponse struct {
	Accepted bool   `json:"accepted"`
	Error    string `json:"error,omitempty"`
	Acks     []Ack  `json:"acks"`
}

// Run submits a compiled command program and blocks until the controller
// confirms every phase. Connection failures are resent with backoff up to a
// bound, since the request never reached the controller. A timeout after the
// request left may mean the machine already started pouring, so it surfaces
// as services.ErrTimeout without a resend; controller rejections are
// services.ErrMachine and are final.
func (c *Client) Run(ctx context.Context, brewID int64, commands []string) ([]Ack, error) {
	if len(commands) == 0 {
		return nil, services.Wrap(
			services.ErrMachine, "machine", "run program",
			"Refusing to dispatch an empty program", nil)
	}
	if c.cfg.BaseURL == "" {
		return nil, services.Wrap(
			services.ErrConfiguration, "machine", "run program",
			"Machine controller URL is not configured", nil)
	}

	encoded, err := json.Marshal(programRequest{BrewID: brewID, Commands: commands})
	if err != nil {
		return nil, fmt.Errorf("machine request: encode body: %w", err)
	}

	attempts := c.retryAttempts()
	for attempt := 1; ; attempt++ {
		acks, delivered, err := c.submitOnce(ctx, encoded)
		if err == nil {
			return acks, nil
		}
		if delivered || attempt >= attempts {
			return acks, err
		}
		if sleepErr := c.sleep(ctx, c.backoffDelay(attempt)); sleepErr != nil {
			return nil, services.Wrap(
				services.ErrTransient, "machine", "run program",
				"Dispatch cancelled while waiting to retry", sleepErr)
		}
	}
}

// submitOnce performs one POST of the encoded program. delivered reports
// whether the request may have reached the controller; only undelivered
// programs are safe to resend without risking a double pour.
func (c *Client) submitOnce(ctx context.Context, encoded []byte) (acks []Ack, delivered bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/api/v1/program", bytes.NewReader(encoded))
	if err != nil {
		return nil, true, fmt.Errorf("machine request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, true, services.Wrap(
				services.ErrTimeout, "machine", "run program",
				"Machine did not respond in time", err)
		}
		return nil, false, services.Wrap(
			services.ErrTransient, "machine", "run program",
			"Could not reach the machine controller", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, services.Wrap(
			services.ErrTransient, "machine", "run program",
			"Could not read machine response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, true, services.Wrap(
			services.ErrMachine, "machine", "run program",
			fmt.Sprintf("Machine rejected the program (http %d)", resp.StatusCode),
			fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var parsed programResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, true, services.Wrap(
			services.ErrMachine, "machine", "run program",
			"Machine returned an unreadable response", err)
	}
	if !parsed.Accepted {
		detail := strings.TrimSpace(parsed.Error)
		if detail == "" {
			detail = "no reason given"
		}
		return nil, true, services.Wrap(
			services.ErrMachine, "machine", "run program",
			"Machine refused the program: "+detail, nil)
	}
	for _, ack := range parsed.Acks {
		if ack.Status != "ok" {
			return parsed.Acks, true, services.Wrap(
				services.ErrMachine, "machine", "run program",
				fmt.Sprintf("Phase %q failed: %s", ack.Command, ack.Detail), nil)
		}
	}
	return parsed.Acks, true, nil
}

func (c *Client) retryAttempts() int {
	if c.maxAttempts > 0 {
		return c.maxAttempts
	}
	return defaultRetryAttempts
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.retryBackoff
	if delay <= 0 {
		delay = defaultRetryBackoff
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// HealthCheck verifies the controller answers its status endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.BaseURL == "" {
		return errors.New("machine health: controller url required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/v1/status", nil)
	if err != nil {
		return fmt.Errorf("machine health: new request: %w", err)
	}
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("machine health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("machine health: http %d", resp.StatusCode)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return false
}
