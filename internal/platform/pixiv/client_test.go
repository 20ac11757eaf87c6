package pixiv

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuzukisa/pixhive/internal/config"
)

func newTestAuthServer(t *testing.T, refreshCount *int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(refreshCount, 1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "token-1",
			"refresh_token": "refresh-2",
			"expires_in":    3600,
		})
	}))
}

func testUpstreamConfig(authURL, baseURL string) config.UpstreamConfig {
	return config.UpstreamConfig{
		BaseURL:               baseURL,
		AuthURL:               authURL,
		ClientID:              "cid",
		ClientSecret:          "secret",
		RefreshToken:          "refresh-1",
		RequestTimeoutSeconds: 5,
	}
}

func TestCredentialManagerSingleRefresh(t *testing.T) {
	var refreshes int64
	authSrv := newTestAuthServer(t, &refreshes)
	defer authSrv.Close()

	creds := NewCredentialManager(testUpstreamConfig(authSrv.URL, "http://unused"), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := creds.GetValidToken(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "token-1", token)
		}()
	}
	wg.Wait()

	// The mutex serializes callers; only the first should hit the auth
	// endpoint, everyone else reuses the fresh token.
	assert.Equal(t, int64(1), atomic.LoadInt64(&refreshes))
}

func TestCredentialManagerAuthFailure(t *testing.T) {
	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer authSrv.Close()

	creds := NewCredentialManager(testUpstreamConfig(authSrv.URL, "http://unused"), nil)
	_, err := creds.GetValidToken(context.Background())
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestClientAPIErrorCarriesStatus(t *testing.T) {
	var refreshes int64
	authSrv := newTestAuthServer(t, &refreshes)
	defer authSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer apiSrv.Close()

	cfg := testUpstreamConfig(authSrv.URL, apiSrv.URL)
	client := NewClient(cfg, NewCredentialManager(cfg, nil))

	_, err := client.FetchRanking(context.Background(), RankingDaily, 0)
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected *APIError, got %T", err)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.True(t, apiErr.RateLimited())
}

func TestClientRetriesOnceOnUnauthorized(t *testing.T) {
	var refreshes int64
	authSrv := newTestAuthServer(t, &refreshes)
	defer authSrv.Close()

	var calls int64
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(IllustPage{
			Illusts: []Illust{{ID: 1}},
			NextURL: "https://upstream.example/v1/illust/ranking?offset=30",
		})
	}))
	defer apiSrv.Close()

	cfg := testUpstreamConfig(authSrv.URL, apiSrv.URL)
	client := NewClient(cfg, NewCredentialManager(cfg, nil))

	page, err := client.FetchRanking(context.Background(), RankingDaily, 0)
	require.NoError(t, err)
	require.Len(t, page.Illusts, 1)
	require.NotNil(t, page.NextOffset)
	assert.Equal(t, 30, *page.NextOffset)

	// One refresh for the initial token, one after the 401.
	assert.Equal(t, int64(2), atomic.LoadInt64(&refreshes))
}

func TestParseNextOffset(t *testing.T) {
	t.Parallel()

	assert.Nil(t, parseNextOffset(""))
	assert.Nil(t, parseNextOffset("https://upstream.example/v1/search/illust?word=cat"))

	got := parseNextOffset("https://upstream.example/v1/search/illust?word=cat&offset=60")
	require.NotNil(t, got)
	assert.Equal(t, 60, *got)
}

func TestIllustClassification(t *testing.T) {
	t.Parallel()

	r18 := Illust{XRestrict: 1}
	assert.True(t, r18.R18())

	tagged := Illust{Tags: []Tag{{Name: "R-18"}}}
	assert.True(t, tagged.R18())

	ai := Illust{IllustAIType: 2}
	assert.True(t, ai.AIFlagged())

	aiTag := Illust{Tags: []Tag{{Name: "AI生成"}}}
	assert.True(t, aiTag.AIFlagged())

	plain := Illust{Tags: []Tag{{Name: "風景"}}}
	assert.False(t, plain.R18())
	assert.False(t, plain.AIFlagged())
}
