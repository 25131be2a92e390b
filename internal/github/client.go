// Package github proxies the handful of public GitHub API calls a
// user-finder front-end needs, with optional response caching.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/contactkeeper/backend/internal/metrics"
)

const (
	DefaultBaseURL = "https://api.github.com"
	userAgent      = "contactkeeper-backend"
	requestTimeout = 10 * time.Second
	reposPerUser   = 5
)

var (
	ErrNotFound = errors.New("github: not found")
	ErrUpstream = errors.New("github: upstream error")
)

// Cache stores decoded API responses.
type Cache interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Config holds the client settings. ClientID and ClientSecret are optional
// and raise the anonymous rate limit when set.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	CacheTTL     time.Duration
}

// Client provides access to the GitHub REST API.
type Client struct {
	httpClient *http.Client
	cfg        Config
	cache      Cache
	metrics    *metrics.Metrics
}

func NewClient(cfg Config, cache Cache, m *metrics.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		cfg:        cfg,
		cache:      cache,
		metrics:    m,
	}
}

// UserSummary is one search hit.
type UserSummary struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

// UserDetail is a full user profile.
type UserDetail struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatar_url"`
	Location    string `json:"location"`
	Bio         string `json:"bio"`
	Blog        string `json:"blog"`
	Company     string `json:"company"`
	Hireable    *bool  `json:"hireable"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	PublicRepos int    `json:"public_repos"`
	PublicGists int    `json:"public_gists"`
	HTMLURL     string `json:"html_url"`
}

type Repo struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	HTMLURL     string `json:"html_url"`
	Description string `json:"description"`
}

type searchResponse struct {
	Items []UserSummary `json:"items"`
}

// SearchUsers returns users matching q.
func (c *Client) SearchUsers(ctx context.Context, q string) ([]UserSummary, error) {
	params := url.Values{}
	params.Set("q", q)

	var resp searchResponse
	if err := c.get(ctx, "/search/users", params, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		resp.Items = []UserSummary{}
	}
	return resp.Items, nil
}

// GetUser returns the profile of login.
func (c *Client) GetUser(ctx context.Context, login string) (*UserDetail, error) {
	var user UserDetail
	if err := c.get(ctx, "/users/"+url.PathEscape(login), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserRepos returns the oldest repositories of login.
func (c *Client) GetUserRepos(ctx context.Context, login string) ([]Repo, error) {
	params := url.Values{}
	params.Set("per_page", fmt.Sprint(reposPerUser))
	params.Set("sort", "created:asc")

	var repos []Repo
	if err := c.get(ctx, "/users/"+url.PathEscape(login)+"/repos", params, &repos); err != nil {
		return nil, err
	}
	if repos == nil {
		repos = []Repo{}
	}
	return repos, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dest any) error {
	cacheKey := "github:" + path
	if len(params) > 0 {
		cacheKey += "?" + params.Encode()
	}
	if c.cache != nil && c.cache.Get(ctx, cacheKey, dest) {
		return nil
	}

	if params == nil {
		params = url.Values{}
	}
	if c.cfg.ClientID != "" {
		params.Set("client_id", c.cfg.ClientID)
		params.Set("client_secret", c.cfg.ClientSecret)
	}

	reqURL := c.cfg.BaseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	c.metrics.IncCounter(metrics.GitHubRequests)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.IncCounter(metrics.GitHubFailures)
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		c.metrics.IncCounter(metrics.GitHubFailures)
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		c.metrics.IncCounter(metrics.GitHubFailures)
		return fmt.Errorf("%w: decode: %w", ErrUpstream, err)
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, cacheKey, dest, c.cfg.CacheTTL)
	}
	return nil
}
