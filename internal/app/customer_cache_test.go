package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/corebank/ledger-service/internal/domain"
	"github.com/corebank/ledger-service/pkg/customerclient"
	"github.com/google/uuid"
)

func TestCustomerCacheStatusUsesProjection(t *testing.T) {
	repo := newLedgerRepoStub()
	repo.projection = activeProjection()
	lookup := &lookupStub{}
	cache := NewCustomerCache(repo, lookup, time.Second)

	status, err := cache.Status(context.Background(), activeCustomerID())
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status != domain.CustomerActive {
		t.Fatalf("expected CustomerActive, got %v", status)
	}
	if lookup.calls != 0 {
		t.Fatal("a projection hit must not trigger the live lookup")
	}

	repo.projection.Active = false
	status, err = cache.Status(context.Background(), activeCustomerID())
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status != domain.CustomerInactive {
		t.Fatalf("expected CustomerInactive, got %v", status)
	}
}

func TestCustomerCacheStatusSeedsOnMiss(t *testing.T) {
	repo := newLedgerRepoStub()
	lookup := &lookupStub{customer: &customerclient.Customer{
		CustomerID: activeCustomerID().String(),
		FullName:   "Ada Lovelace",
		Active:     true,
	}}
	cache := NewCustomerCache(repo, lookup, time.Second)

	status, err := cache.Status(context.Background(), activeCustomerID())
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status != domain.CustomerActive {
		t.Fatalf("expected CustomerActive, got %v", status)
	}
	if lookup.calls != 1 {
		t.Fatalf("expected one live lookup, got %d", lookup.calls)
	}
	if len(repo.upserts) != 1 {
		t.Fatalf("expected the lookup result to seed the projection, got %d upserts", len(repo.upserts))
	}
	if seeded := repo.upserts[0]; !seeded.Active || seeded.CustomerName != "Ada Lovelace" {
		t.Fatalf("unexpected seeded projection: %+v", seeded)
	}
}

func TestCustomerCacheStatusFailsClosed(t *testing.T) {
	repo := newLedgerRepoStub()
	lookup := &lookupStub{err: errors.New("connection refused")}
	cache := NewCustomerCache(repo, lookup, time.Second)

	status, err := cache.Status(context.Background(), activeCustomerID())
	if !errors.Is(err, ErrCustomerUnavailable) {
		t.Fatalf("expected ErrCustomerUnavailable, got %v", err)
	}
	if status != domain.CustomerUnknown {
		t.Fatalf("expected CustomerUnknown, got %v", status)
	}
}

func TestCustomerCacheStatusNotFound(t *testing.T) {
	repo := newLedgerRepoStub()
	lookup := &lookupStub{err: customerclient.ErrCustomerNotFound}
	cache := NewCustomerCache(repo, lookup, time.Second)

	_, err := cache.Status(context.Background(), activeCustomerID())
	if !errors.Is(err, customerclient.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
	if len(repo.upserts) != 0 {
		t.Fatal("a missing customer must not seed the projection")
	}
}

func TestCustomerCacheApplyEvent(t *testing.T) {
	eventID := uuid.New()
	occurredAt := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		event       domain.CustomerLifecycleEvent
		upsertOK    bool
		wantActive  bool
		wantApplied bool
	}{
		{
			name: "created event projects active",
			event: domain.CustomerLifecycleEvent{
				EventID: eventID, EventType: domain.CustomerEventCreated,
				CustomerID: activeCustomerID(), FullName: "Ada Lovelace",
				Active: true, OccurredAt: occurredAt,
			},
			upsertOK: true, wantActive: true, wantApplied: true,
		},
		{
			name: "deleted event forces inactive",
			event: domain.CustomerLifecycleEvent{
				EventID: eventID, EventType: domain.CustomerEventDeleted,
				CustomerID: activeCustomerID(),
				Active:     true, // a lying producer flag must not survive deletion
				OccurredAt: occurredAt,
			},
			upsertOK: true, wantActive: false, wantApplied: true,
		},
		{
			name: "stale event is discarded by the store",
			event: domain.CustomerLifecycleEvent{
				EventID: eventID, EventType: domain.CustomerEventUpdated,
				CustomerID: activeCustomerID(), Active: false, OccurredAt: occurredAt,
			},
			upsertOK: false, wantActive: false, wantApplied: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newLedgerRepoStub()
			repo.upsertOK = tt.upsertOK
			cache := NewCustomerCache(repo, nil, time.Second)

			applied, err := cache.ApplyEvent(context.Background(), tt.event)
			if err != nil {
				t.Fatalf("apply failed: %v", err)
			}
			if applied != tt.wantApplied {
				t.Fatalf("applied = %v, want %v", applied, tt.wantApplied)
			}
			if len(repo.upserts) != 1 {
				t.Fatalf("expected one upsert, got %d", len(repo.upserts))
			}
			if repo.upserts[0].Active != tt.wantActive {
				t.Fatalf("projected active = %v, want %v", repo.upserts[0].Active, tt.wantActive)
			}
			if repo.upserts[0].LastEventID != eventID || !repo.upserts[0].LastEventAt.Equal(occurredAt) {
				t.Fatalf("event watermark not carried into projection: %+v", repo.upserts[0])
			}
		})
	}
}
