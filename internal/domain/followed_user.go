package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for FollowedUser.
var (
	ErrEmptyFollowID         = errors.New("followed user ID cannot be empty")
	ErrEmptyFollowExternalID = errors.New("followed user external ID cannot be empty")
)

// FollowedUser is an upstream author the account follows. Rows are created by
// follow-sync runs and read by the followed-new-works and initial-backfill
// modes. Users who unfollow are kept; nothing deletes these rows.
type FollowedUser struct {
	ID         uuid.UUID `json:"id"`
	ExternalID int64     `json:"external_id"`
	Name       string    `json:"name"`
	AvatarURL  string    `json:"avatar_url,omitempty"`

	// LastSyncedAt is the time of the most recent works collection for this
	// user; follow-new-works only fetches works newer than this.
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`

	// BackfillCompleted marks that the one-time historical walk finished.
	BackfillCompleted bool `json:"backfill_completed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFollowedUser creates a FollowedUser for a newly discovered follow.
func NewFollowedUser(externalID int64, name string) (*FollowedUser, error) {
	now := time.Now().UTC()
	user := &FollowedUser{
		ID:         uuid.New(),
		ExternalID: externalID,
		Name:       name,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the FollowedUser has valid data.
func (u *FollowedUser) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyFollowID
	}
	if u.ExternalID == 0 {
		return ErrEmptyFollowExternalID
	}
	return nil
}

// MarkSynced records a completed works collection for this user.
func (u *FollowedUser) MarkSynced(at time.Time) {
	t := at.UTC()
	u.LastSyncedAt = &t
	u.UpdatedAt = time.Now().UTC()
}
