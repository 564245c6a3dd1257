package app

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/corebank/ledger-service/internal/domain"
	"github.com/google/uuid"
)

func newTestConsumer(repo *ledgerRepoStub) (*CustomerEventConsumer, *publisherStub) {
	cache := NewCustomerCache(repo, nil, time.Second)
	service, publisher := newTestService(repo, nil)
	return NewCustomerEventConsumer(cache, service, nil), publisher
}

func lifecycleEvent(eventType string) domain.CustomerLifecycleEvent {
	return domain.CustomerLifecycleEvent{
		EventID:    uuid.New(),
		EventType:  eventType,
		CustomerID: activeCustomerID(),
		FullName:   "Ada Lovelace",
		Active:     true,
		OccurredAt: time.Now().UTC(),
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

func TestHandleMessageMalformedIsAcked(t *testing.T) {
	repo := newLedgerRepoStub()
	consumer, _ := newTestConsumer(repo)

	if !consumer.HandleMessage([]byte("{not json")) {
		t.Fatal("malformed payloads must be acked, not requeued")
	}
	if repo.hasUpserts {
		t.Fatal("malformed payloads must not touch the projection")
	}
}

func TestHandleMessageMissingIdentifiersIsAcked(t *testing.T) {
	repo := newLedgerRepoStub()
	consumer, _ := newTestConsumer(repo)

	event := lifecycleEvent(domain.CustomerEventCreated)
	event.EventID = uuid.Nil
	if !consumer.HandleMessage(mustMarshal(t, event)) {
		t.Fatal("events without identifiers must be acked, not requeued")
	}
	if repo.hasUpserts {
		t.Fatal("invalid events must not touch the projection")
	}
}

func TestHandleMessageCreatedRefreshesProjection(t *testing.T) {
	repo := newLedgerRepoStub()
	consumer, _ := newTestConsumer(repo)

	event := lifecycleEvent(domain.CustomerEventCreated)
	if !consumer.HandleMessage(mustMarshal(t, event)) {
		t.Fatal("expected ack")
	}
	if len(repo.upserts) != 1 {
		t.Fatalf("expected one projection upsert, got %d", len(repo.upserts))
	}
	if !repo.upserts[0].Active || repo.upserts[0].CustomerName != "Ada Lovelace" {
		t.Fatalf("unexpected projection: %+v", repo.upserts[0])
	}
	if len(repo.cascadeCalls) != 0 {
		t.Fatal("created events must not cascade")
	}
}

func TestHandleMessageDeletedCascades(t *testing.T) {
	repo := newLedgerRepoStub()
	repo.accountsByCustomer = []domain.Account{
		{AccountNumber: 10000001, CustomerID: activeCustomerID()},
		{AccountNumber: 10000002, CustomerID: activeCustomerID()},
	}
	consumer, publisher := newTestConsumer(repo)

	if !consumer.HandleMessage(mustMarshal(t, lifecycleEvent(domain.CustomerEventDeleted))) {
		t.Fatal("expected ack")
	}
	if len(repo.cascadeCalls) != 2 {
		t.Fatalf("expected 2 cascaded accounts, got %d", len(repo.cascadeCalls))
	}
	if len(repo.upserts) != 1 || repo.upserts[0].Active {
		t.Fatalf("expected the projection marked inactive, got %+v", repo.upserts)
	}
	if len(publisher.accountsDeleted) != 2 {
		t.Fatalf("expected 2 account.deleted events, got %d", len(publisher.accountsDeleted))
	}
}

func TestHandleMessageStaleDeletedStillCascades(t *testing.T) {
	repo := newLedgerRepoStub()
	repo.upsertOK = false // store discards the event as stale
	repo.accountsByCustomer = []domain.Account{
		{AccountNumber: 10000001, CustomerID: activeCustomerID()},
	}
	consumer, _ := newTestConsumer(repo)

	// A redelivered deletion whose projection write already landed must still
	// run the cascade; the cascade itself is idempotent.
	if !consumer.HandleMessage(mustMarshal(t, lifecycleEvent(domain.CustomerEventDeleted))) {
		t.Fatal("expected ack")
	}
	if len(repo.cascadeCalls) != 1 {
		t.Fatalf("expected the cascade to run for the stale deletion, got %d calls", len(repo.cascadeCalls))
	}
}

func TestHandleMessageStaleUpdateDropped(t *testing.T) {
	repo := newLedgerRepoStub()
	repo.upsertOK = false
	consumer, _ := newTestConsumer(repo)

	if !consumer.HandleMessage(mustMarshal(t, lifecycleEvent(domain.CustomerEventUpdated))) {
		t.Fatal("stale events must be acked, not requeued")
	}
	if len(repo.cascadeCalls) != 0 {
		t.Fatal("stale updates must not cascade")
	}
}

func TestHandleMessageTransientErrorRequeues(t *testing.T) {
	repo := newLedgerRepoStub()
	repo.upsertErr = errors.New("connection reset")
	consumer, _ := newTestConsumer(repo)

	if consumer.HandleMessage(mustMarshal(t, lifecycleEvent(domain.CustomerEventUpdated))) {
		t.Fatal("transient store failures must be requeued")
	}
}
