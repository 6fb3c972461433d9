package version

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

// Release lookup defaults.
const (
	DefaultBaseURL = "https://api.github.com"
	DefaultTimeout = 10 * time.Second
	DefaultOwner   = "mrz1836"
	DefaultRepo    = "chainpay"

	maxErrorBodySize    = 1024
	maxResponseBodySize = 64 * 1024
)

// ErrReleaseLookup indicates the GitHub releases API could not be read.
var ErrReleaseLookup = &payerr.PayError{
	Code:     "RELEASE_LOOKUP_FAILED",
	Message:  "could not fetch the latest release",
	ExitCode: payerr.ExitGeneral,
}

//nolint:gochecknoglobals // Compiled once
var validOwnerRepo = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// Release is the subset of a GitHub release chainpay reads.
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	HTMLURL     string    `json:"html_url"`
}

// Check is the result of comparing the running build to the latest release.
type Check struct {
	Current string `json:"current"`
	Latest  string `json:"latest"`
	URL     string `json:"url,omitempty"`
	Newer   bool   `json:"update_available"`
}

// Client fetches releases from GitHub.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(url, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  fmt.Sprintf("chainpay/%s (%s/%s)", version, runtime.GOOS, runtime.GOARCH),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LatestRelease fetches owner/repo's latest published release.
func (c *Client) LatestRelease(ctx context.Context, owner, repo string) (*Release, error) {
	if !validOwnerRepo.MatchString(owner) || !validOwnerRepo.MatchString(repo) {
		return nil, payerr.WithDetails(payerr.ErrInvalidInput, map[string]string{"repository": owner + "/" + repo})
	}

	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, owner, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, payerr.WithCause(ErrReleaseLookup, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL is built from the configured API base
	if err != nil {
		return nil, payerr.WithCause(ErrReleaseLookup, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, payerr.WithDetails(ErrReleaseLookup, map[string]string{
			"status": strconv.Itoa(resp.StatusCode),
			"body":   strings.TrimSpace(string(body)),
		})
	}

	var rel Release
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodySize)).Decode(&rel); err != nil {
		return nil, payerr.WithCause(ErrReleaseLookup, err)
	}
	return &rel, nil
}

// CheckLatest compares b against the latest chainpay release.
func (c *Client) CheckLatest(ctx context.Context, b Build) (Check, error) {
	rel, err := c.LatestRelease(ctx, DefaultOwner, DefaultRepo)
	if err != nil {
		return Check{}, err
	}
	latest := Normalize(rel.TagName)
	return Check{
		Current: b.Version,
		Latest:  latest,
		URL:     rel.HTMLURL,
		Newer:   Compare(latest, b.Version) > 0,
	}, nil
}

// Compare returns 1, 0 or -1 as v1 is newer than, equal to or older than v2.
// Development builds sort before every release.
func Compare(v1, v2 string) int {
	dev1, dev2 := isDev(v1), isDev(v2)
	switch {
	case dev1 && dev2:
		return 0
	case dev1:
		return -1
	case dev2:
		return 1
	}

	p1, p2 := parts(v1), parts(v2)
	for i := range 3 {
		if p1[i] != p2[i] {
			if p1[i] > p2[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

// Normalize trims whitespace, any "v" prefix and pre-release or build suffixes.
func Normalize(v string) string {
	v = strings.TrimLeft(strings.TrimSpace(v), "v")
	if idx := strings.IndexAny(v, "-+"); idx != -1 {
		v = v[:idx]
	}
	return v
}

func parts(v string) [3]int {
	var out [3]int
	for i, p := range strings.SplitN(Normalize(v), ".", 3) {
		n, err := strconv.Atoi(p)
		if err == nil {
			out[i] = n
		}
	}
	return out
}

//nolint:gochecknoglobals // Compiled once
var commitHash = regexp.MustCompile(`^[0-9a-fA-F]{7,40}$`)

// isDev treats "dev", empty strings and bare commit hashes as unreleased.
// A hash must contain a letter so numeric versions like "2024010100" pass.
func isDev(v string) bool {
	v = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(v), "v"), "-dirty")
	if v == "" || v == "dev" {
		return true
	}
	return commitHash.MatchString(v) && strings.ContainsAny(strings.ToLower(v), "abcdef")
}
