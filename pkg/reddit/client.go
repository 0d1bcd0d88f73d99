// Package reddit reads daily top listings through the application-only
// OAuth flow and turns them into ranked posts.
package reddit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"resty.dev/v3"
)

const (
	DefaultAuthURL = "https://www.reddit.com"
	DefaultAPIURL  = "https://oauth.reddit.com"

	// Refresh the token a little before reddit would reject it.
	tokenSlack = 30 * time.Second
)

type ClientConfig struct {
	ClientID     string
	ClientSecret string
	UserAgent    string

	AuthURL string
	APIURL  string
	Timeout time.Duration
}

type Listed struct {
	Title               string   `json:"title"`
	Author              string   `json:"author"`
	URL                 string   `json:"url"`
	Thumbnail           string   `json:"thumbnail"`
	CreatedUTC          float64  `json:"created_utc"`
	Ups                 int      `json:"ups"`
	TotalAwardsReceived int      `json:"total_awards_received"`
	Preview             *Preview `json:"preview,omitempty"`
}

type Preview struct {
	Images []struct {
		Source struct {
			URL string `json:"url"`
		} `json:"source"`
	} `json:"images"`
}

type listing struct {
	Data struct {
		Children []struct {
			Data Listed `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type Client struct {
	cfg  ClientConfig
	auth *resty.Client
	api  *resty.Client

	mu      sync.Mutex
	token   string
	expires time.Time
	now     func() time.Time
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	newResty := func(base string) *resty.Client {
		return resty.New().
			SetBaseURL(base).
			SetTimeout(cfg.Timeout).
			SetHeader("User-Agent", cfg.UserAgent)
	}

	return &Client{
		cfg:  cfg,
		auth: newResty(cfg.AuthURL),
		api:  newResty(cfg.APIURL),
		now:  time.Now,
	}
}

func (c *Client) Close() error {
	if err := c.auth.Close(); err != nil {
		return err
	}
	return c.api.Close()
}

// Token returns a cached application token, requesting a new one when the
// current one is missing or about to expire.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}

	var tok tokenResponse
	res, err := c.auth.R().
		WithContext(ctx).
		SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		SetResult(&tok).
		Post("/api/v1/access_token")
	if err != nil {
		return "", fmt.Errorf("reddit/client: token request failed: %w", err)
	}
	if res.IsError() {
		return "", fmt.Errorf("reddit/client: token request rejected: status %d", res.StatusCode())
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("reddit/client: token response has no access_token")
	}

	c.token = tok.AccessToken
	c.expires = c.now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenSlack)
	return c.token, nil
}

// Top lists the day's top posts of subreddit, best first.
func (c *Client) Top(ctx context.Context, subreddit string, limit int) ([]Listed, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	var l listing
	res, err := c.api.R().
		WithContext(ctx).
		SetAuthToken(token).
		SetPathParam("subreddit", subreddit).
		SetQueryParams(map[string]string{
			"t":        "day",
			"limit":    strconv.Itoa(limit),
			"raw_json": "1",
		}).
		SetResult(&l).
		Get("/r/{subreddit}/top")
	if err != nil {
		return nil, fmt.Errorf("reddit/client: listing request failed: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("reddit/client: listing request rejected: status %d", res.StatusCode())
	}

	out := make([]Listed, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		out = append(out, child.Data)
	}
	return out, nil
}
