package direct

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch"
)

var pageHTML = "<html><body>" + strings.Repeat("<p>release notes</p>", 20) + "</body></html>"

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pageHTML))
	})
	mux.HandleFunc("/forbidden", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})
	mux.HandleFunc("/shell", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div id="root"></div><script src="/app.js"></script></body></html>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchOneSuccess(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	e := New(Config{UserAgent: "tester/1.0"}, nil, zap.NewNop())

	res, err := e.FetchOne(context.Background(), srv.URL+"/ok", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, pageHTML, res.HTML)
	assert.Empty(t, res.Error)
	assert.False(t, res.NeedsJS)
	assert.True(t, res.Success(fetch.DefaultMinValidLength))
}

func TestFetchOneForbidden(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	e := New(Config{}, nil, zap.NewNop())

	res, err := e.FetchOne(context.Background(), srv.URL+"/forbidden", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.NotEmpty(t, res.Error)
	assert.False(t, res.Success(fetch.DefaultMinValidLength))
}

func TestFetchOneFlagsSPAShell(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	e := New(Config{}, nil, zap.NewNop())

	res, err := e.FetchOne(context.Background(), srv.URL+"/shell", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, res.NeedsJS)
}

func TestFetchManyKeepsInputOrder(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	e := New(Config{}, nil, zap.NewNop())

	urls := []string{srv.URL + "/ok", srv.URL + "/forbidden", srv.URL + "/ok"}
	out, err := e.FetchMany(context.Background(), urls, 2, 5*time.Second)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, r := range out {
		assert.Equal(t, urls[i], r.URL)
	}
	assert.Empty(t, out[0].Error)
	assert.NotEmpty(t, out[1].Error)
}

func TestFetchOneUnreachableHost(t *testing.T) {
	t.Parallel()

	e := New(Config{}, nil, zap.NewNop())
	res, err := e.FetchOne(context.Background(), "http://127.0.0.1:1/", 2*time.Second)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Error)
}
