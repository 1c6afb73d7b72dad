// Package github lists repository releases from the GitHub REST API.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/orionstore/orion/internal/version"
)

// DefaultTimeout bounds a single release listing.
const DefaultTimeout = 8 * time.Second

// Release is a published release with its assets. The JSON shape follows the
// GitHub API so mirror documents and cached payloads decode into it directly.
type Release struct {
	Name        string  `json:"name,omitempty"`
	TagName     string  `json:"tag_name,omitempty"`
	PublishedAt string  `json:"published_at,omitempty"`
	Assets      []Asset `json:"assets,omitempty"`
}

// Asset is a downloadable file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// Status describes how the server answered a release listing.
type Status int

const (
	// StatusFresh means a new payload and validator were returned.
	StatusFresh Status = iota
	// StatusNotModified means the cached payload is still current.
	StatusNotModified
)

// Result is the outcome of a release listing.
type Result struct {
	Status    Status
	Releases  []Release
	Validator string
}

// Options configures a Client.
type Options struct {
	// Token is an optional personal access token sent as a bearer token.
	Token string

	// BaseURL overrides the API endpoint. It must end with a slash.
	BaseURL string

	// Timeout bounds each request. If zero, DefaultTimeout is used.
	Timeout time.Duration

	// HTTPClient is the underlying transport. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
}

// Client wraps the GitHub API client.
type Client struct {
	client  *gh.Client
	timeout time.Duration
}

// NewClient creates a new GitHub API client.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient

	// Use token if available (for higher rate limits)
	if opts.Token != "" {
		ctx := context.Background()
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	client := gh.NewClient(httpClient)
	client.UserAgent = version.UserAgent()

	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid API URL %q: %w", opts.BaseURL, err)
		}
		client.BaseURL = u
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Client{client: client, timeout: timeout}, nil
}

// ListReleases returns the first page of releases of repo (owner/repo form),
// newest first. A non-empty validator is sent as If-None-Match; when the
// server confirms it, the result has StatusNotModified and no releases.
func (c *Client) ListReleases(ctx context.Context, repo, validator string) (*Result, error) {
	owner, name, err := ParseRepository(repo)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.client.NewRequest(http.MethodGet, fmt.Sprintf("repos/%s/%s/releases", owner, name), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if validator != "" {
		req.Header.Set("If-None-Match", validator)
	}

	var releases []*gh.RepositoryRelease
	resp, err := c.client.Do(ctx, req, &releases)
	if resp != nil && resp.StatusCode == http.StatusNotModified {
		return &Result{Status: StatusNotModified, Validator: validator}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list releases for %s: %w", repo, err)
	}

	result := &Result{
		Status:    StatusFresh,
		Releases:  make([]Release, 0, len(releases)),
		Validator: resp.Header.Get("ETag"),
	}
	for _, r := range releases {
		result.Releases = append(result.Releases, convertRelease(r))
	}
	return result, nil
}

// convertRelease converts a GitHub API release to our Release type.
func convertRelease(r *gh.RepositoryRelease) Release {
	release := Release{
		Name:    r.GetName(),
		TagName: r.GetTagName(),
		Assets:  make([]Asset, 0, len(r.Assets)),
	}
	if published := r.GetPublishedAt(); !published.IsZero() {
		release.PublishedAt = published.UTC().Format(time.RFC3339)
	}

	for _, asset := range r.Assets {
		release.Assets = append(release.Assets, Asset{
			Name:               asset.GetName(),
			BrowserDownloadURL: asset.GetBrowserDownloadURL(),
			Size:               int64(asset.GetSize()),
		})
	}

	return release
}

// ParseRepository splits owner/repo.
func ParseRepository(repo string) (owner, name string, err error) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/repo", repo)
	}
	return parts[0], parts[1], nil
}
