package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/macroviewer/pkg/observability"
)

// Defaults for [Client].
const (
	DefaultTimeout  = 30 * time.Second
	DefaultAttempts = 3
	DefaultDelay    = time.Second
	// MaxBody bounds a downloaded snapshot.
	MaxBody = 256 << 20
)

// Client downloads dataset snapshots with retry, conditional requests and
// a last-known-good fallback.
type Client struct {
	HTTP     *http.Client
	Cache    *Cache
	Attempts int
	Delay    time.Duration
	Logger   *log.Logger
	// UserAgent is sent with every request.
	UserAgent string
	// Refresh skips fresh cache hits and revalidation. Fetched bodies are
	// still stored and a stale fallback still applies.
	Refresh bool
}

// NewClient returns a client with default timeouts, storing snapshots in c.
func NewClient(c *Cache) *Client {
	return &Client{
		HTTP:      &http.Client{Timeout: DefaultTimeout},
		Cache:     c,
		Attempts:  DefaultAttempts,
		Delay:     DefaultDelay,
		Logger:    log.Default(),
		UserAgent: "macroviewer",
	}
}

// Source tells where a [Result] came from.
type Source string

const (
	SourceNetwork     Source = "network"
	SourceCache       Source = "cache"
	SourceNotModified Source = "not-modified"
	SourceStale       Source = "stale"
)

// Result is a fetched body and its provenance.
type Result struct {
	Snapshot
	Source Source
	// Err is the fetch failure that a stale fallback is hiding.
	Err error
}

// Fetch returns the body at rawURL. A fresh cached snapshot is returned
// without a request. Otherwise the URL is requested, conditionally when a
// stale snapshot has validators; if every attempt fails and a snapshot of
// any age exists, that snapshot is returned with Source stale and the
// failure in Result.Err.
func (c *Client) Fetch(ctx context.Context, rawURL string) (Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return Result{}, fmt.Errorf("invalid dataset url %q", rawURL)
	}
	logger := c.Logger
	if logger == nil {
		logger = log.Default()
	}
	store := c.Cache
	if store == nil {
		store = NewCache(nil, 0)
	}

	cached, hit, cerr := store.Get(ctx, rawURL)
	if hit && cerr == nil && !c.Refresh {
		return Result{Snapshot: cached, Source: SourceCache}, nil
	}
	if cerr != nil && !errors.Is(cerr, ErrExpired) {
		logger.Warn("snapshot cache unreadable", "url", rawURL, "err", cerr)
		hit = false
	}

	var fresh Snapshot
	var notModified bool
	err = Retry(ctx, c.Attempts, c.Delay, func() error {
		var err error
		fresh, notModified, err = c.get(ctx, u, cached, hit && !c.Refresh)
		if err != nil {
			logger.Debug("fetch attempt failed", "url", rawURL, "err", err)
			return classify(err)
		}
		return nil
	})

	switch {
	case err == nil && notModified:
		cached.FetchedAt = time.Now()
		if serr := store.Set(ctx, rawURL, cached); serr != nil {
			logger.Warn("snapshot cache write failed", "url", rawURL, "err", serr)
		}
		return Result{Snapshot: cached, Source: SourceNotModified}, nil
	case err == nil:
		if serr := store.Set(ctx, rawURL, fresh); serr != nil {
			logger.Warn("snapshot cache write failed", "url", rawURL, "err", serr)
		}
		return Result{Snapshot: fresh, Source: SourceNetwork}, nil
	case hit:
		logger.Warn("fetch failed, using last known good snapshot", "url", rawURL, "age", cached.Age().Round(time.Second), "err", err)
		return Result{Snapshot: cached, Source: SourceStale, Err: err}, nil
	}
	return Result{}, err
}

func (c *Client) get(ctx context.Context, u *url.URL, prior Snapshot, conditional bool) (Snapshot, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Snapshot{}, false, err
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if conditional {
		if prior.ETag != "" {
			req.Header.Set("If-None-Match", prior.ETag)
		}
		if prior.LastModified != "" {
			req.Header.Set("If-Modified-Since", prior.LastModified)
		}
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, u.Host, u.Path)
	start := time.Now()

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, u.Host, u.Path, err)
		return Snapshot{}, false, err
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, u.Host, u.Path, resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusNotModified && conditional {
		return Snapshot{}, true, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Snapshot{}, false, &StatusError{URL: u.String(), Code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBody+1))
	if err != nil {
		return Snapshot{}, false, err
	}
	if len(body) > MaxBody {
		return Snapshot{}, false, &StatusError{URL: u.String(), Code: http.StatusRequestEntityTooLarge}
	}
	return Snapshot{
		URL:          u.String(),
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		FetchedAt:    time.Now(),
		Body:         body,
	}, false, nil
}
