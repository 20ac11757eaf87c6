package pixiv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/yuzukisa/pixhive/internal/config"
	"github.com/yuzukisa/pixhive/internal/platform/logger"
)

// Client is the upstream artwork platform API client. All listing methods
// return one page plus a parsed continuation offset; errors from the API are
// *APIError values carrying the HTTP status for the retry policy.
type Client struct {
	httpClient *http.Client
	baseURL    string
	creds      *CredentialManager
}

// NewClient creates an API client.
func NewClient(cfg config.UpstreamConfig, creds *CredentialManager) *Client {
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		creds:      creds,
	}
}

// FetchRanking returns one page of the curated ranking for the period.
// Page numbering starts at 0; the upstream uses a 30-item page size.
func (c *Client) FetchRanking(ctx context.Context, period RankingPeriod, page int) (*IllustPage, error) {
	q := url.Values{
		"mode":   {string(period)},
		"offset": {strconv.Itoa(page * 30)},
	}
	return c.fetchIllustPage(ctx, "/v1/illust/ranking", q)
}

// FetchUserWorks returns one page of a user's works, newest first.
func (c *Client) FetchUserWorks(ctx context.Context, userID int64, offset int) (*IllustPage, error) {
	q := url.Values{
		"user_id": {strconv.FormatInt(userID, 10)},
		"type":    {"illust"},
		"offset":  {strconv.Itoa(offset)},
	}
	return c.fetchIllustPage(ctx, "/v1/user/illusts", q)
}

// FetchFollowedWorks returns one page of the followed-users feed, newest
// first.
func (c *Client) FetchFollowedWorks(ctx context.Context, offset int) (*IllustPage, error) {
	q := url.Values{
		"restrict": {"public"},
		"offset":   {strconv.Itoa(offset)},
	}
	return c.fetchIllustPage(ctx, "/v2/illust/follow", q)
}

// Search returns one page of keyword search results, newest first.
func (c *Client) Search(ctx context.Context, keyword string, offset int) (*IllustPage, error) {
	q := url.Values{
		"word":          {keyword},
		"search_target": {"partial_match_for_tags"},
		"sort":          {"date_desc"},
		"offset":        {strconv.Itoa(offset)},
	}
	return c.fetchIllustPage(ctx, "/v1/search/illust", q)
}

// FetchFollowedUsers returns one page of the account's follow listing.
func (c *Client) FetchFollowedUsers(ctx context.Context, offset int) (*UserPage, error) {
	q := url.Values{
		"restrict": {"public"},
		"offset":   {strconv.Itoa(offset)},
	}

	var page UserPage
	if err := c.get(ctx, "/v1/user/following", q, &page); err != nil {
		return nil, err
	}
	page.NextOffset = parseNextOffset(page.NextURL)
	for i := range page.UserPreviews {
		page.UserPreviews[i].User.AvatarURL = page.UserPreviews[i].User.ProfileImageURLs.Medium
	}
	return &page, nil
}

// FetchIllust returns the full detail record for one illustration.
func (c *Client) FetchIllust(ctx context.Context, illustID int64) (*Illust, error) {
	q := url.Values{"illust_id": {strconv.FormatInt(illustID, 10)}}

	var detail illustDetail
	if err := c.get(ctx, "/v1/illust/detail", q, &detail); err != nil {
		return nil, err
	}
	return &detail.Illust, nil
}

func (c *Client) fetchIllustPage(ctx context.Context, path string, q url.Values) (*IllustPage, error) {
	var page IllustPage
	if err := c.get(ctx, path, q, &page); err != nil {
		return nil, err
	}
	page.NextOffset = parseNextOffset(page.NextURL)
	return &page, nil
}

// get performs an authenticated GET and decodes the JSON response. A 401
// response invalidates the cached token and the call is retried once with a
// freshly refreshed token; a second rejection surfaces as the APIError.
func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	err := c.getOnce(ctx, path, q, out)
	if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusUnauthorized {
		logger.FromContext(ctx).Warn("upstream rejected token, refreshing once",
			"path", path)
		c.creds.Invalidate()
		err = c.getOnce(ctx, path, q, out)
	}
	return err
}

func (c *Client) getOnce(ctx context.Context, path string, q url.Values, out any) error {
	token, err := c.creds.GetValidToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept-Language", "en-US")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode upstream response: %w", err)
	}
	return nil
}
