package collector

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yuzukisa/pixhive/internal/domain"
	"github.com/yuzukisa/pixhive/internal/platform/pixiv"
	"github.com/yuzukisa/pixhive/internal/store"
)

// fakeUpstream routes each API call to an injectable function. Unset
// functions return an empty final page.
type fakeUpstream struct {
	ranking       func(ctx context.Context, period pixiv.RankingPeriod, page int) (*pixiv.IllustPage, error)
	userWorks     func(ctx context.Context, userID int64, offset int) (*pixiv.IllustPage, error)
	followedWorks func(ctx context.Context, offset int) (*pixiv.IllustPage, error)
	followedUsers func(ctx context.Context, offset int) (*pixiv.UserPage, error)
	search        func(ctx context.Context, keyword string, offset int) (*pixiv.IllustPage, error)
	illust        func(ctx context.Context, illustID int64) (*pixiv.Illust, error)
}

func (f *fakeUpstream) FetchRanking(ctx context.Context, period pixiv.RankingPeriod, page int) (*pixiv.IllustPage, error) {
	if f.ranking == nil {
		return &pixiv.IllustPage{}, nil
	}
	return f.ranking(ctx, period, page)
}

func (f *fakeUpstream) FetchUserWorks(ctx context.Context, userID int64, offset int) (*pixiv.IllustPage, error) {
	if f.userWorks == nil {
		return &pixiv.IllustPage{}, nil
	}
	return f.userWorks(ctx, userID, offset)
}

func (f *fakeUpstream) FetchFollowedWorks(ctx context.Context, offset int) (*pixiv.IllustPage, error) {
	if f.followedWorks == nil {
		return &pixiv.IllustPage{}, nil
	}
	return f.followedWorks(ctx, offset)
}

func (f *fakeUpstream) FetchFollowedUsers(ctx context.Context, offset int) (*pixiv.UserPage, error) {
	if f.followedUsers == nil {
		return &pixiv.UserPage{}, nil
	}
	return f.followedUsers(ctx, offset)
}

func (f *fakeUpstream) Search(ctx context.Context, keyword string, offset int) (*pixiv.IllustPage, error) {
	if f.search == nil {
		return &pixiv.IllustPage{}, nil
	}
	return f.search(ctx, keyword, offset)
}

func (f *fakeUpstream) FetchIllust(ctx context.Context, illustID int64) (*pixiv.Illust, error) {
	if f.illust == nil {
		return nil, &pixiv.APIError{StatusCode: 404, Message: "not found"}
	}
	return f.illust(ctx, illustID)
}

// memArtworks is an in-memory ArtworkStore.
type memArtworks struct {
	mu   sync.Mutex
	rows map[int64]domain.Artwork
}

func newMemArtworks() *memArtworks {
	return &memArtworks{rows: make(map[int64]domain.Artwork)}
}

func (m *memArtworks) Upsert(_ context.Context, artwork *domain.Artwork) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.rows[artwork.ExternalID]
	m.rows[artwork.ExternalID] = *artwork
	return !exists, nil
}

func (m *memArtworks) GetByExternalID(_ context.Context, externalID int64) (*domain.Artwork, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[externalID]
	if !ok {
		return nil, store.ErrArtworkNotFound
	}
	return &row, nil
}

func (m *memArtworks) FindRefreshable(_ context.Context, cutoff time.Time, limit int) ([]*domain.Artwork, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Artwork
	for _, row := range m.rows {
		if row.Stale || !row.LastRefreshedAt.Before(cutoff) {
			continue
		}
		copied := row
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastRefreshedAt.Before(out[j].LastRefreshedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memArtworks) MarkStale(_ context.Context, externalID int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[externalID]
	if !ok {
		return store.ErrArtworkNotFound
	}
	row.MarkStale(reason)
	m.rows[externalID] = row
	return nil
}

func (m *memArtworks) Delete(_ context.Context, externalID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[externalID]; !ok {
		return store.ErrArtworkNotFound
	}
	delete(m.rows, externalID)
	return nil
}

func (m *memArtworks) SetCollectSource(_ context.Context, externalID int64, source domain.LogType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[externalID]
	if !ok {
		return store.ErrArtworkNotFound
	}
	row.CollectSource = source
	m.rows[externalID] = row
	return nil
}

func (m *memArtworks) WithTx(*sql.Tx) store.ArtworkStore { return m }

func (m *memArtworks) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// memFollows is an in-memory FollowStore.
type memFollows struct {
	mu   sync.Mutex
	rows map[int64]domain.FollowedUser
}

func newMemFollows() *memFollows {
	return &memFollows{rows: make(map[int64]domain.FollowedUser)}
}

func (m *memFollows) Upsert(_ context.Context, user *domain.FollowedUser) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, exists := m.rows[user.ExternalID]
	if exists {
		existing.Name = user.Name
		existing.AvatarURL = user.AvatarURL
		m.rows[user.ExternalID] = existing
		return false, nil
	}
	m.rows[user.ExternalID] = *user
	return true, nil
}

func (m *memFollows) GetByExternalID(_ context.Context, externalID int64) (*domain.FollowedUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[externalID]
	if !ok {
		return nil, store.ErrFollowedUserNotFound
	}
	return &row, nil
}

func (m *memFollows) List(_ context.Context) ([]*domain.FollowedUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.FollowedUser
	for _, row := range m.rows {
		copied := row
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out, nil
}

func (m *memFollows) ListPendingBackfill(ctx context.Context) ([]*domain.FollowedUser, error) {
	all, _ := m.List(ctx)
	var out []*domain.FollowedUser
	for _, user := range all {
		if !user.BackfillCompleted {
			out = append(out, user)
		}
	}
	return out, nil
}

func (m *memFollows) SetSynced(_ context.Context, externalID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[externalID]
	if !ok {
		return store.ErrFollowedUserNotFound
	}
	row.MarkSynced(at)
	m.rows[externalID] = row
	return nil
}

func (m *memFollows) SetBackfillCompleted(_ context.Context, externalID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[externalID]
	if !ok {
		return store.ErrFollowedUserNotFound
	}
	row.BackfillCompleted = true
	m.rows[externalID] = row
	return nil
}

func (m *memFollows) WithTx(*sql.Tx) store.FollowStore { return m }

// memLogs is an in-memory CollectionLogStore.
type memLogs struct {
	mu   sync.Mutex
	rows map[uuid.UUID]domain.CollectionLog
}

func newMemLogs() *memLogs {
	return &memLogs{rows: make(map[uuid.UUID]domain.CollectionLog)}
}

func (m *memLogs) Create(_ context.Context, log *domain.CollectionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rows[log.ID]; exists {
		return store.ErrDuplicate
	}
	m.rows[log.ID] = *log
	return nil
}

func (m *memLogs) GetByID(_ context.Context, id uuid.UUID) (*domain.CollectionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, store.ErrCollectionLogNotFound
	}
	return &row, nil
}

func (m *memLogs) Update(_ context.Context, log *domain.CollectionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[log.ID]; !ok {
		return store.ErrCollectionLogNotFound
	}
	m.rows[log.ID] = *log
	return nil
}

func (m *memLogs) List(_ context.Context, filter store.LogFilter) ([]*domain.CollectionLog, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.CollectionLog
	for _, row := range m.rows {
		if filter.LogType != "" && row.LogType != filter.LogType {
			continue
		}
		if filter.Status != "" && row.Status != filter.Status {
			continue
		}
		copied := row
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	total := len(out)
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			out = nil
		} else {
			out = out[filter.Offset:]
		}
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *memLogs) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for id, row := range m.rows {
		if row.StartedAt.Before(cutoff) {
			delete(m.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memLogs) WithTx(*sql.Tx) store.CollectionLogStore { return m }

// memSettings is an in-memory SettingsStore.
type memSettings struct {
	mu   sync.Mutex
	rows map[string]string
}

func newMemSettings() *memSettings {
	return &memSettings{rows: make(map[string]string)}
}

func (m *memSettings) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.rows[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return value, nil
}

func (m *memSettings) GetInt(ctx context.Context, key string, fallback int) int {
	raw, err := m.Get(ctx, key)
	if err != nil {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func (m *memSettings) GetFloat(ctx context.Context, key string, fallback float64) float64 {
	raw, err := m.Get(ctx, key)
	if err != nil {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func (m *memSettings) GetString(ctx context.Context, key, fallback string) string {
	raw, err := m.Get(ctx, key)
	if err != nil {
		return fallback
	}
	return raw
}

func (m *memSettings) GetStrings(ctx context.Context, key string, fallback []string) []string {
	raw, err := m.Get(ctx, key)
	if err != nil || strings.TrimSpace(raw) == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (m *memSettings) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[key] = value
	return nil
}
