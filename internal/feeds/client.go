package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"fantasy-alpha-lab/internal/domain"
)

// Fetcher returns the envelope for one feed and week.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, league *domain.League, week int) (Envelope, error)
}

// Client fetches one feed over HTTP or websocket.
type Client struct {
	feed    string
	timeout time.Duration
	ext     ExternalConfig
	rt      RuntimeConfig
	http    *http.Client
	dialer  *websocket.Dialer
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	now     func() time.Time
	getenv  func(string) string
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.http = client
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// WithGetenv overrides environment lookup.
func WithGetenv(getenv func(string) string) ClientOption {
	return func(c *Client) {
		c.getenv = getenv
	}
}

// NewClient creates a client for the named feed.
func NewClient(feed string, ext ExternalConfig, rt RuntimeConfig, opts ...ClientOption) *Client {
	timeout := time.Duration(rt.TimeoutSeconds * float64(time.Second))
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	c := &Client{
		feed:    feed,
		timeout: timeout,
		ext:     ext,
		rt:      rt,
		http:    &http.Client{Timeout: timeout},
		dialer:  &websocket.Dialer{HandshakeTimeout: timeout},
		now:     time.Now,
		getenv:  os.Getenv,
	}

	limit := rate.Inf
	if rt.RequestsPerSecond > 0 {
		limit = rate.Limit(rt.RequestsPerSecond)
	}
	c.limiter = rate.NewLimiter(limit, 1)

	threshold := uint32(5)
	if rt.BreakerFailureThreshold > 0 {
		threshold = uint32(rt.BreakerFailureThreshold)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "feed:" + feed,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the feed name.
func (c *Client) Name() string {
	return c.feed
}

// Fetch resolves the feed payload. Transport failures never surface as
// errors; they become a fetch_failed envelope. Only context cancellation
// is returned.
func (c *Client) Fetch(ctx context.Context, league *domain.League, week int) (Envelope, error) {
	env := NewEnvelope(c.now())

	if !c.ext.Enabled {
		env.QualityFlags = append(env.QualityFlags, FlagFeedDisabled)
		return env, nil
	}

	if static, ok := c.ext.StaticPayloads[c.feed]; ok {
		return Coerce(static, []string{FlagStaticPayload}, nil, c.now()), nil
	}

	endpoint := c.resolve(c.ext.Endpoints[c.feed], "ENDPOINT")
	if endpoint == "" {
		env.QualityFlags = append(env.QualityFlags, FlagEndpointNotConfigured)
		return env, nil
	}

	headers := http.Header{}
	for key, value := range c.ext.RequestHeaders {
		headers.Set(key, c.expandEnv(value))
	}
	if apiKey := c.resolve(c.ext.APIKeys[c.feed], "API_KEY"); apiKey != "" && headers.Get("Authorization") == "" {
		headers.Set("Authorization", "Bearer "+apiKey)
	}

	target := buildURL(endpoint, league, week)

	retries := c.rt.Retries
	if retries < 0 {
		retries = 0
	}
	backoff := time.Duration(c.rt.BackoffSeconds * float64(time.Second))

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 && backoff > 0 {
			select {
			case <-ctx.Done():
				return env, ctx.Err()
			case <-time.After(backoff * time.Duration(attempt)):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return env, ctx.Err()
			}
			lastErr = err
			continue
		}

		value, err := c.breaker.Execute(func() (interface{}, error) {
			return c.fetchOnce(ctx, target, headers)
		})
		if err != nil {
			if ctx.Err() != nil {
				return env, ctx.Err()
			}
			lastErr = err
			if errors.Is(err, gobreaker.ErrOpenState) {
				break
			}
			continue
		}
		return Coerce(value, []string{FlagLiveFetch}, nil, c.now()), nil
	}

	env.QualityFlags = append(env.QualityFlags, FlagFetchFailed)
	env.Warnings = append(env.Warnings, fmt.Sprintf("%s_fetch_failed: %v", c.feed, lastErr))
	return env, nil
}

func (c *Client) fetchOnce(ctx context.Context, target string, headers http.Header) (any, error) {
	if strings.HasPrefix(target, "ws://") || strings.HasPrefix(target, "wss://") {
		return c.readFrame(ctx, target, headers)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for key, values := range headers {
		req.Header[key] = values
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return value, nil
}

// readFrame reads a single JSON envelope frame from a push-style endpoint.
func (c *Client) readFrame(ctx context.Context, target string, headers http.Header) (any, error) {
	conn, resp, err := c.dialer.DialContext(ctx, target, headers)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial websocket: %w", err)
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	return value, nil
}

// resolve expands a configured value and falls back to ALPHA_<FEED>_<suffix>.
func (c *Client) resolve(configured, suffix string) string {
	value := strings.TrimSpace(c.expandEnv(configured))
	if isUnresolvedPlaceholder(value) {
		value = ""
	}
	if value == "" {
		value = c.getenv("ALPHA_" + strings.ToUpper(c.feed) + "_" + suffix)
	}
	return value
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references; unset variables keep the placeholder.
func (c *Client) expandEnv(value string) string {
	return envPattern.ReplaceAllStringFunc(value, func(match string) string {
		name := envPattern.FindStringSubmatch(match)[1]
		if v := c.getenv(name); v != "" {
			return v
		}
		return match
	})
}

func isUnresolvedPlaceholder(value string) bool {
	return strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}")
}

func buildURL(endpoint string, league *domain.League, week int) string {
	params := url.Values{}
	if league != nil {
		params.Set("league_id", strconv.Itoa(league.LeagueID))
		params.Set("year", strconv.Itoa(league.Year))
	}
	params.Set("week", strconv.Itoa(week))

	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + params.Encode()
}
