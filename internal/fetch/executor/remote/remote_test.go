package remote

import (
	"context"
	"encoding/json"
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

var renderedHTML = strings.Repeat("<section>press release</section>", 10)

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req apiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.RenderJS)

		resp := apiResponse{HTML: renderedHTML, StatusCode: http.StatusOK}
		if strings.Contains(req.URL, "walled") {
			resp = apiResponse{StatusCode: http.StatusForbidden, Error: "target blocked the request"}
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProviderUnavailableWithoutKey(t *testing.T) {
	t.Parallel()

	p := NewProviderA(Config{Endpoint: "https://api.example"}, zap.NewNop())
	assert.False(t, p.Available())

	_, err := p.FetchOne(context.Background(), "https://example.com/", time.Second)
	require.Error(t, err)
}

func TestProviderFetchOne(t *testing.T) {
	t.Parallel()

	srv := newAPIServer(t)
	p := NewProviderA(Config{Endpoint: srv.URL, APIKey: "sk-test"}, zap.NewNop())
	require.True(t, p.Available())
	assert.Equal(t, fetch.TierRemoteA, p.Tier())

	res, err := p.FetchOne(context.Background(), "https://example.com/report", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, renderedHTML, res.HTML)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, res.Error)
}

func TestProviderRelaysTargetFailure(t *testing.T) {
	t.Parallel()

	srv := newAPIServer(t)
	p := NewProviderB(Config{Endpoint: srv.URL, APIKey: "sk-test"}, zap.NewNop())
	assert.Equal(t, fetch.TierRemoteB, p.Tier())

	res, err := p.FetchOne(context.Background(), "https://walled.example/", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "target blocked the request", res.Error)
	assert.False(t, res.Success(fetch.DefaultMinValidLength))
}

func TestProviderRejectedCredentials(t *testing.T) {
	t.Parallel()

	srv := newAPIServer(t)
	p := NewProviderA(Config{Endpoint: srv.URL, APIKey: "sk-wrong"}, zap.NewNop())

	res, err := p.FetchOne(context.Background(), "https://example.com/", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Contains(t, res.Error, "http 401")
}

func TestProviderFetchMany(t *testing.T) {
	t.Parallel()

	srv := newAPIServer(t)
	p := NewProviderA(Config{Endpoint: srv.URL, APIKey: "sk-test"}, zap.NewNop())

	urls := []string{"https://a.example/", "https://walled.example/", "https://b.example/"}
	out, err := p.FetchMany(context.Background(), urls, 50, 5*time.Second)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, r := range out {
		assert.Equal(t, urls[i], r.URL)
	}
	assert.Empty(t, out[0].Error)
	assert.NotEmpty(t, out[1].Error)
}
