// Package httpclient is the one place in this module allowed to make a
// network request. It wraps a retrying, rate-limited fetch in a thin
// Client type and hands callers a parsed goquery Document the scrapers
// can query directly.
package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"github.com/encheres-immo/scraper/internal/config"
	"github.com/encheres-immo/scraper/internal/scrapeerr"
)

// retryableStatus: transient statuses worth another attempt; anything
// else fails the fetch immediately.
var retryableStatus = map[int]bool{
	429: true, 500: true, 502: true, 503: true, 504: true,
}

// Client fetches pages with a polite delay between requests and retries
// transient failures with a growing backoff.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client

	// lastRequestEnd is when the previous rate-limit sleep finished: the
	// delay is measured from the end of the last wait, not the start of
	// the last request, so it paces requests rather than jittering them.
	lastRequestEnd time.Time
}

// New builds a Client with a cookie jar (sites under test set a session
// cookie on the first hit) and a transport timeout from cfg.
func New(cfg *config.Config) *Client {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
			Jar:     jar,
		},
	}
}

// Get fetches a path relative to cfg.BaseURL, retrying retryable statuses
// and connection errors up to cfg.MaxRetries times with an exponential
// backoff, and returns the body parsed as an HTML document.
func (c *Client) Get(ctx context.Context, urlPath string) (*goquery.Document, error) {
	url := c.cfg.BaseURL + urlPath

	c.rateLimit(ctx)

	var lastErr error
	lastStatus := 0
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			// RetryBackoff is a multiplier: 2s, 4s, 8s... at the default 2.0.
			backoff := time.Duration(math.Pow(c.cfg.RetryBackoff, float64(attempt)) * float64(time.Second))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		doc, status, err := c.doOnce(ctx, url)
		if err == nil {
			return doc, nil
		}
		lastErr = err
		lastStatus = status
		if status != 0 && !retryableStatus[status] {
			break
		}
	}
	return nil, &scrapeerr.Transport{URL: url, StatusCode: lastStatus, Err: lastErr}
}

func (c *Client) doOnce(ctx context.Context, url string) (*goquery.Document, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return doc, resp.StatusCode, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip")
}

// decodeBody forces UTF-8 regardless of what the server's Content-Type
// header claims (the site is known UTF-8) and transparently ungzips when
// the response was compressed.
func decodeBody(resp *http.Response) (io.Reader, error) {
	var r io.Reader = io.LimitReader(resp.Body, 10<<20)
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		r = gz
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	// html.Parse (via goquery) treats its input as UTF-8 regardless of any
	// Content-Type charset param; the declared charset is never consulted.
	return bytes.NewReader(data), nil
}

// rateLimit sleeps for a uniform random interval in [MinDelay, MaxDelay],
// measured from the end of the previous sleep.
func (c *Client) rateLimit(ctx context.Context) {
	min := c.cfg.MinDelay()
	max := c.cfg.MaxDelay()
	delay := min
	if max > min {
		delay = min + time.Duration(rand.Int63n(int64(max-min)))
	}

	wait := delay - time.Since(c.lastRequestEnd)
	if wait > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}
	}
	c.lastRequestEnd = time.Now()
}
