package annotation

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

	"scenetrack/internal/services/retry"
)

const (
	serviceName         = "annotation"
	defaultHTTPTimeout  = 60 * time.Second
	defaultPollInterval = 5 * time.Second
	defaultMaxWait      = 30 * time.Minute
	// maxResponseBytes caps operation bodies. Label results for long videos
	// run to several megabytes.
	maxResponseBytes    = 64 << 20
)

// Feature selects an analysis the service runs on a video.
type Feature string

const (
	FeatureShotChange      Feature = "SHOT_CHANGE_DETECTION"
	FeatureLabel           Feature = "LABEL_DETECTION"
	FeatureExplicitContent Feature = "EXPLICIT_CONTENT_DETECTION"
)

// DefaultFeatures is the feature set scene consolidation needs.
var DefaultFeatures = []Feature{FeatureShotChange, FeatureLabel, FeatureExplicitContent}

// Config captures the runtime settings required to talk to the service.
type Config struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	PollInterval time.Duration
	MaxWait      time.Duration
	Features     []Feature
}

// Client drives the long-running videos:annotate operation over REST.
type Client struct {
	cfg        Config
	httpClient *http.Client
	policy     retry.Policy
	now        func() time.Time
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

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// NewClient constructs an annotation client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if len(cfg.Features) == 0 {
		cfg.Features = append([]Feature(nil), DefaultFeatures...)
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		policy:     retry.DefaultPolicy(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type annotateRequest struct {
	InputURI string    `json:"inputUri"`
	Features []Feature `json:"features"`
}

// Operation mirrors a google.longrunning.Operation.
type Operation struct {
	Name     string                 `json:"name"`
	Done     bool                   `json:"done"`
	Error    *Status                `json:"error,omitempty"`
	Response *AnnotateVideoResponse `json:"response,omitempty"`
}

// Annotate starts an annotation for inputURI and waits for its result. A
// response without results yields ErrNoResults.
func (c *Client) Annotate(ctx context.Context, inputURI string) (AnnotateVideoResponse, error) {
	name, err := c.Start(ctx, inputURI)
	if err != nil {
		return AnnotateVideoResponse{}, err
	}
	resp, err := c.Wait(ctx, name)
	if err != nil {
		return AnnotateVideoResponse{}, err
	}
	if resp.Empty() {
		return resp, fmt.Errorf("%w for %s", ErrNoResults, inputURI)
	}
	return resp, nil
}

// Start submits the annotation request and returns the operation name.
func (c *Client) Start(ctx context.Context, inputURI string) (string, error) {
	inputURI = strings.TrimSpace(inputURI)
	if inputURI == "" {
		return "", errors.New("annotation start: input uri required")
	}
	payload, err := json.Marshal(annotateRequest{InputURI: inputURI, Features: c.cfg.Features})
	if err != nil {
		return "", fmt.Errorf("annotation start: encode body: %w", err)
	}
	var op Operation
	err = c.policy.Do(ctx, "annotation start", func(ctx context.Context) error {
		return c.do(ctx, http.MethodPost, "videos:annotate", payload, &op)
	})
	if err != nil {
		return "", err
	}
	if op.Error != nil && op.Error.Code != 0 {
		return "", fmt.Errorf("annotation start: %d %s", op.Error.Code, op.Error.Message)
	}
	if strings.TrimSpace(op.Name) == "" {
		return "", errors.New("annotation start: response missing operation name")
	}
	return op.Name, nil
}

// Wait polls the operation until it is done, fails, or MaxWait elapses.
func (c *Client) Wait(ctx context.Context, name string) (AnnotateVideoResponse, error) {
	deadline := c.now().Add(c.cfg.MaxWait)
	for {
		op, err := c.Poll(ctx, name)
		if err != nil {
			return AnnotateVideoResponse{}, err
		}
		if op.Done {
			if op.Error != nil && op.Error.Code != 0 {
				return AnnotateVideoResponse{}, fmt.Errorf("annotation operation %s failed: %d %s", name, op.Error.Code, op.Error.Message)
			}
			if op.Response == nil {
				return AnnotateVideoResponse{}, nil
			}
			return *op.Response, nil
		}
		if !c.now().Before(deadline) {
			return AnnotateVideoResponse{}, fmt.Errorf("annotation operation %s: %w after %s", name, context.DeadlineExceeded, c.cfg.MaxWait)
		}
		timer := time.NewTimer(c.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return AnnotateVideoResponse{}, ctx.Err()
		case <-timer.C:
		}
	}
}

// Poll fetches the current state of an operation.
func (c *Client) Poll(ctx context.Context, name string) (Operation, error) {
	var op Operation
	err := c.policy.Do(ctx, "annotation poll", func(ctx context.Context) error {
		op = Operation{}
		return c.do(ctx, http.MethodGet, "operations/"+strings.TrimPrefix(name, "/"), nil, &op)
	})
	return op, err
}

// HealthCheck verifies the service answers. Any response below 500 counts as
// reachable since the endpoint root is not a documented resource.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL, nil)
	if err != nil {
		return fmt.Errorf("annotation health: %w", err)
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("annotation health: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("annotation health: http %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, path)
	if err != nil {
		return fmt.Errorf("annotation request: build url: %w", err)
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("annotation request: new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("annotation request: http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	if err := retry.CheckResponse(serviceName, resp); err != nil {
		return err
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("annotation request: decode response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	}
}
