package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/encheres-immo/scraper/internal/config"
)

func testConfig(baseURL string) *config.Config {
	cfg := config.Defaults()
	cfg.BaseURL = baseURL
	cfg.MinDelaySeconds = 0
	cfg.MaxDelaySeconds = 0
	cfg.MaxRetries = 2
	cfg.RetryBackoff = 0.01
	return cfg
}

func TestGetReturnsParsedDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><h1 id="title">hello</h1></body></html>`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	doc, err := c.Get(context.Background(), "/page.html")
	require.NoError(t, err)
	require.Equal(t, "hello", doc.Find("#title").Text())
}

func TestGetRetriesRetryableStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`<html><body>ok</body></html>`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.Get(context.Background(), "/page.html")
	require.NoError(t, err)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 1
	c := New(cfg)
	_, err := c.Get(context.Background(), "/page.html")
	require.Error(t, err)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetDoesNotRetryNonRetryableStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.Get(context.Background(), "/missing.html")
	require.Error(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
