package pixiv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/yuzukisa/pixhive/internal/config"
	"github.com/yuzukisa/pixhive/internal/platform/logger"
)

// expirySlack is subtracted from the reported token lifetime so a token is
// refreshed slightly before the upstream would reject it.
const expirySlack = 60 * time.Second

// CredentialManager owns the process-wide upstream credential. Callers only
// ever see GetValidToken; the access token, refresh token, and expiry are
// internal, and refresh runs under a mutex so exactly one caller refreshes
// while the rest wait and reuse the fresh token.
type CredentialManager struct {
	mu           sync.Mutex
	httpClient   *http.Client
	authURL      string
	clientID     string
	clientSecret string

	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

// NewCredentialManager creates a CredentialManager seeded with the configured
// long-lived refresh token. The first GetValidToken call performs the initial
// exchange.
func NewCredentialManager(cfg config.UpstreamConfig, httpClient *http.Client) *CredentialManager {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &CredentialManager{
		httpClient:   httpClient,
		authURL:      cfg.AuthURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		refreshToken: cfg.RefreshToken,
	}
}

// GetValidToken returns a usable access token, refreshing it first when it
// is missing or expired. Concurrent callers serialize on the refresh; a
// caller that waited behind a refresh reuses its result.
func (m *CredentialManager) GetValidToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.accessToken != "" && time.Now().Before(m.expiresAt) {
		return m.accessToken, nil
	}
	if err := m.refreshLocked(ctx); err != nil {
		return "", err
	}
	return m.accessToken, nil
}

// Invalidate discards the cached access token so the next GetValidToken
// refreshes. Used after the upstream rejects a token mid-flight.
func (m *CredentialManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accessToken = ""
	m.expiresAt = time.Time{}
}

// refreshLocked exchanges the refresh token for a new access token.
// Caller must hold m.mu.
func (m *CredentialManager) refreshLocked(ctx context.Context) error {
	log := logger.FromContext(ctx)

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {m.clientID},
		"client_secret": {m.clientSecret},
		"refresh_token": {m.refreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.authURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build token refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token refresh request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		log.Error("token refresh rejected", "status", resp.StatusCode)
		return fmt.Errorf("%w: status %d", ErrAuthFailed, resp.StatusCode)
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return fmt.Errorf("%w: empty access token in response", ErrAuthFailed)
	}

	m.accessToken = payload.AccessToken
	if payload.RefreshToken != "" {
		m.refreshToken = payload.RefreshToken
	}
	m.expiresAt = time.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - expirySlack)

	log.Debug("upstream token refreshed", "expires_at", m.expiresAt)
	return nil
}
