package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewArtwork(t *testing.T) {
	t.Parallel()

	artwork, err := NewArtwork(12345, 678, "title", LogTypeRankingWorks)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if artwork.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if artwork.ExternalID != 12345 {
		t.Errorf("Expected external ID 12345, got %d", artwork.ExternalID)
	}
	if artwork.Type != ArtworkTypeIllust {
		t.Errorf("Expected default type illust, got %s", artwork.Type)
	}
	if artwork.Stale {
		t.Error("New artwork must not be stale")
	}

	_, err = NewArtwork(0, 678, "title", LogTypeRankingWorks)
	if err != ErrEmptyArtworkExternalID {
		t.Errorf("Expected error %v, got %v", ErrEmptyArtworkExternalID, err)
	}

	_, err = NewArtwork(12345, 0, "title", LogTypeRankingWorks)
	if err != ErrEmptyArtworkAuthorID {
		t.Errorf("Expected error %v, got %v", ErrEmptyArtworkAuthorID, err)
	}
}

func TestArtworkMarkStale(t *testing.T) {
	t.Parallel()

	artwork, err := NewArtwork(1, 2, "gone", LogTypeMetadataUpdate)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	artwork.MarkStale("removed upstream")
	if !artwork.Stale {
		t.Error("Expected artwork to be stale")
	}
	if artwork.StaleReason != "removed upstream" {
		t.Errorf("Expected stale reason to be recorded, got %q", artwork.StaleReason)
	}
}

func TestArtworkHasTag(t *testing.T) {
	t.Parallel()

	artwork := Artwork{Tags: []string{"風景", "オリジナル"}}
	if !artwork.HasTag("風景") {
		t.Error("Expected HasTag to find existing tag")
	}
	if artwork.HasTag("漫画") {
		t.Error("Expected HasTag to miss absent tag")
	}
}

func TestFollowedUserMarkSynced(t *testing.T) {
	t.Parallel()

	user, err := NewFollowedUser(42, "artist")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if user.LastSyncedAt != nil {
		t.Error("Expected LastSyncedAt to start nil")
	}

	user.MarkSynced(user.CreatedAt)
	if user.LastSyncedAt == nil {
		t.Fatal("Expected LastSyncedAt to be set")
	}

	_, err = NewFollowedUser(0, "artist")
	if err != ErrEmptyFollowExternalID {
		t.Errorf("Expected error %v, got %v", ErrEmptyFollowExternalID, err)
	}
}
