package emojidex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"scenetrack/internal/services/retry"
)

const (
	serviceName        = "emojidex"
	searchPath         = "search/emoji"
	searchParam        = "code_cont"
	defaultHTTPTimeout = 10 * time.Second
	maxResponseBytes   = 1 << 20
)

// Config captures the settings for the search API.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client resolves labels to emoji through the emojidex search API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	policy     retry.Policy

	mu     sync.Mutex
	folder cases.Caser
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

// NewClient constructs a client for cfg.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		policy:     retry.DefaultPolicy(),
		folder:     cases.Lower(language.English),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type searchResponse struct {
	Emoji []struct {
		Code string  `json:"code"`
		Moji *string `json:"moji"`
	} `json:"emoji"`
}

// Normalize turns a label into the search code emojidex uses: lower case
// with words joined by underscores.
func (c *Client) Normalize(term string) string {
	c.mu.Lock()
	lowered := c.folder.String(strings.TrimSpace(term))
	c.mu.Unlock()
	return strings.Join(strings.Fields(lowered), "_")
}

// Emoji returns the first non-null moji matching term, or "" when nothing
// matches.
func (c *Client) Emoji(ctx context.Context, term string) (string, error) {
	code := c.Normalize(term)
	if code == "" {
		return "", nil
	}
	var found string
	err := c.policy.Do(ctx, "emoji search", func(ctx context.Context) error {
		var resp searchResponse
		if err := c.search(ctx, code, &resp); err != nil {
			return err
		}
		found = ""
		for _, entry := range resp.Emoji {
			if entry.Moji != nil && *entry.Moji != "" {
				found = *entry.Moji
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return found, nil
}

// HealthCheck issues a search for a well-known code.
func (c *Client) HealthCheck(ctx context.Context) error {
	var resp searchResponse
	if err := c.search(ctx, "smile", &resp); err != nil {
		return fmt.Errorf("emojidex health: %w", err)
	}
	return nil
}

func (c *Client) search(ctx context.Context, code string, out *searchResponse) error {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, searchPath)
	if err != nil {
		return fmt.Errorf("emojidex request: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+url.Values{searchParam: {code}}.Encode(), nil)
	if err != nil {
		return fmt.Errorf("emojidex request: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("emojidex request: http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	if err := retry.CheckResponse(serviceName, resp); err != nil {
		return err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return fmt.Errorf("emojidex request: read body: %w", err)
	}
	if len(body) > maxResponseBytes {
		return fmt.Errorf("emojidex request: response exceeds %d bytes", maxResponseBytes)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("emojidex request: decode response: %w", err)
	}
	return nil
}

// Disabled is a resolver that never finds an emoji.
type Disabled struct{}

func (Disabled) Emoji(context.Context, string) (string, error) { return "", nil }
