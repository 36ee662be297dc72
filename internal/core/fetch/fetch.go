package fetch

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/gocolly/colly"

	"harvester/internal/logger"
)

// Config is the immutable fetch configuration, built once at startup and
// passed in at construction time.
type Config struct {
	Timeout      time.Duration
	DelayMin     time.Duration
	DelayMax     time.Duration
	MaxBodyBytes int
}

// Page is a fetched document. Body is already charset-decoded: colly resolves
// the declared encoding from the response and falls back to auto-detection
// when the declaration is absent or implausible.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Client performs single polite GETs. Politeness is a randomized delay before
// each request plus an independent randomized delay after a successful fetch,
// so request spacing never forms a fixed-interval pattern. No retries here;
// retry policy belongs to the caller.
type Client struct {
	cfg Config
	log *logger.Logger
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.DelayMax < cfg.DelayMin {
		cfg.DelayMax = cfg.DelayMin
	}
	return &Client{cfg: cfg, log: logger.New("Fetch")}
}

// Fetch retrieves one URL. Any network failure, timeout or non-2xx status is
// reported as a *FetchError.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if err := c.pause(ctx, c.randomDelay()); err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	co := c.newCollector()

	var page *Page
	var fetchErr *FetchError

	co.OnResponse(func(r *colly.Response) {
		page = &Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       r.Body,
		}
	})
	co.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = &FetchError{URL: rawURL, StatusCode: status, Err: err}
	})

	if err := co.Visit(rawURL); err != nil && fetchErr == nil {
		fetchErr = &FetchError{URL: rawURL, Err: err}
	}
	if fetchErr != nil {
		c.log.LogWarnf("fetch failed %s: %v", rawURL, fetchErr.Err)
		return nil, fetchErr
	}
	if page == nil {
		return nil, &FetchError{URL: rawURL, Err: errors.New("no response received")}
	}
	if page.StatusCode < 200 || page.StatusCode >= 300 {
		return nil, &FetchError{URL: rawURL, StatusCode: page.StatusCode, Err: errors.New("non-success status")}
	}

	c.log.LogDebugf("fetched %s status=%d bytes=%d", rawURL, page.StatusCode, len(page.Body))

	// Settle delay after a successful hit, independent of the pre-request
	// wait. Cancellation here is not an error: the page is already in hand.
	_ = c.pause(ctx, c.randomDelay())

	return page, nil
}

func (c *Client) newCollector() *colly.Collector {
	profile := RandomProfile()
	co := colly.NewCollector(colly.UserAgent(profile.UserAgent))
	co.SetRequestTimeout(c.cfg.Timeout)
	co.DetectCharset = true
	if c.cfg.MaxBodyBytes > 0 {
		co.MaxBodySize = c.cfg.MaxBodyBytes
	}
	co.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", profile.Accept)
		r.Headers.Set("Accept-Language", profile.AcceptLanguage)
		r.Headers.Set("Upgrade-Insecure-Requests", "1")
		if profile.SecFetchDest != "" {
			r.Headers.Set("Sec-Fetch-Dest", profile.SecFetchDest)
			r.Headers.Set("Sec-Fetch-Mode", profile.SecFetchMode)
			r.Headers.Set("Sec-Fetch-Site", profile.SecFetchSite)
			if profile.SecFetchUser != "" {
				r.Headers.Set("Sec-Fetch-User", profile.SecFetchUser)
			}
		}
		if profile.SecChUa != "" {
			r.Headers.Set("Sec-Ch-Ua", profile.SecChUa)
			r.Headers.Set("Sec-Ch-Ua-Mobile", profile.SecChUaMobile)
			r.Headers.Set("Sec-Ch-Ua-Platform", profile.SecChUaPlatform)
		}
	})
	return co
}

func (c *Client) randomDelay() time.Duration {
	span := c.cfg.DelayMax - c.cfg.DelayMin
	if span <= 0 {
		return c.cfg.DelayMin
	}
	return c.cfg.DelayMin + time.Duration(rand.Int63n(int64(span)))
}

func (c *Client) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
