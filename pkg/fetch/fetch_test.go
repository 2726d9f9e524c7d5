package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/japaniel/diningmenu/pkg/config"
)

func newFetcher(opts ...Option) *Fetcher {
	return New(append([]Option{WithLogger(zap.NewNop().Sugar())}, opts...)...)
}

func TestFetchSendsBrowserHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	body, err := newFetcher().Fetch(context.Background(), srv.URL, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(body))
	assert.Equal(t, config.DefaultUserAgent, gotUA)
	assert.Contains(t, gotAccept, "text/html")
}

func TestFetchNonSuccessIsNetworkError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newFetcher().Fetch(context.Background(), srv.URL, time.Second)
	var nerr *NetworkError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, http.StatusForbidden, nerr.StatusCode)
	assert.Equal(t, srv.URL, nerr.URL)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "no retry")
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := newFetcher().Fetch(context.Background(), srv.URL, 50*time.Millisecond)
	var nerr *NetworkError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, 0, nerr.StatusCode)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFetchBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// chunked, so Content-Length is unknown
		w.(http.Flusher).Flush()
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	_, err := newFetcher(WithMaxBodyBytes(32)).Fetch(context.Background(), srv.URL, time.Second)
	assert.ErrorIs(t, err, ErrBodyTooLarge)

	body, err := newFetcher(WithMaxBodyBytes(64)).Fetch(context.Background(), srv.URL, time.Second)
	require.NoError(t, err)
	assert.Len(t, body, 64)
}

func TestFetchContentLengthOverLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.Write([]byte(strings.Repeat("y", 100)))
	}))
	defer srv.Close()

	_, err := newFetcher(WithMaxBodyBytes(10)).Fetch(context.Background(), srv.URL, time.Second)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestFetchBadURL(t *testing.T) {
	_, err := newFetcher().Fetch(context.Background(), "http://127.0.0.1:0/nothing", time.Second)
	var nerr *NetworkError
	assert.True(t, errors.As(err, &nerr))
}
