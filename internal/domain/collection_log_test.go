package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewCollectionLog(t *testing.T) {
	t.Parallel()

	log, err := NewCollectionLog(LogTypeRankingWorks, "starting")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if log.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if log.Status != LogStatusPending {
		t.Errorf("Expected status %s, got %s", LogStatusPending, log.Status)
	}
	if log.StartedAt.IsZero() {
		t.Error("Expected non-zero StartedAt time")
	}
	if log.FinishedAt != nil {
		t.Error("Expected nil FinishedAt for a pending log")
	}

	_, err = NewCollectionLog("bogus_mode", "starting")
	if err != ErrInvalidLogType {
		t.Errorf("Expected error %v, got %v", ErrInvalidLogType, err)
	}
}

func TestCollectionLogForwardOnlyTransitions(t *testing.T) {
	t.Parallel()

	log, err := NewCollectionLog(LogTypeCustomRanking, "starting")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := log.UpdateStatus(LogStatusRunning, "running"); err != nil {
		t.Fatalf("pending -> running should succeed, got %v", err)
	}

	if err := log.UpdateStatus(LogStatusPending, ""); err != ErrLogStatusRegression {
		t.Errorf("running -> pending should fail with %v, got %v", ErrLogStatusRegression, err)
	}

	if err := log.UpdateStatus(LogStatusSucceeded, "done"); err != nil {
		t.Fatalf("running -> succeeded should succeed, got %v", err)
	}
	if log.FinishedAt == nil {
		t.Error("Expected FinishedAt to be set on terminal transition")
	}

	// Any transition out of a terminal state must fail.
	for _, next := range []LogStatus{LogStatusPending, LogStatusRunning, LogStatusPartial, LogStatusFailed} {
		if err := log.UpdateStatus(next, ""); err != ErrLogAlreadyTerminal {
			t.Errorf("succeeded -> %s should fail with %v, got %v", next, ErrLogAlreadyTerminal, err)
		}
	}
	if log.Status != LogStatusSucceeded {
		t.Errorf("Terminal status must not change, got %s", log.Status)
	}
}

func TestCollectionLogTerminalStates(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status   LogStatus
		terminal bool
	}{
		{LogStatusPending, false},
		{LogStatusRunning, false},
		{LogStatusSucceeded, true},
		{LogStatusPartial, true},
		{LogStatusFailed, true},
	}

	for _, tc := range cases {
		log := CollectionLog{ID: uuid.New(), LogType: LogTypeFollowSync, Status: tc.status}
		if log.Terminal() != tc.terminal {
			t.Errorf("Terminal() for %s: expected %v", tc.status, tc.terminal)
		}
	}
}

func TestCollectionLogValidate(t *testing.T) {
	t.Parallel()

	log := CollectionLog{
		ID:      uuid.New(),
		LogType: LogTypeMetadataUpdate,
		Status:  LogStatusRunning,
	}
	if err := log.Validate(); err != nil {
		t.Errorf("Expected valid log, got %v", err)
	}

	log.ArtworksCount = -1
	if err := log.Validate(); err != ErrNegativeArtworkCount {
		t.Errorf("Expected %v, got %v", ErrNegativeArtworkCount, err)
	}
}
