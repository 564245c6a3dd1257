package customerclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetCustomerDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/internal/customers/cust-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Internal-API-Key"); got != "secret" {
			t.Errorf("expected internal api key header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"customer_id":"cust-1","full_name":"Ada Lovelace","active":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", 2*time.Second)
	customer, err := client.GetCustomer(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if customer.CustomerID != "cust-1" || customer.FullName != "Ada Lovelace" || !customer.Active {
		t.Fatalf("unexpected customer: %+v", customer)
	}
}

func TestGetCustomerNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	_, err := client.GetCustomer(context.Background(), "missing")
	if !errors.Is(err, ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}

func TestGetCustomerTimesOut(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	client := NewClient(server.URL, "", 50*time.Millisecond)
	_, err := client.GetCustomer(context.Background(), "slow")
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestGetCustomerRejectsEmptyBaseURL(t *testing.T) {
	client := NewClient("   ", "", time.Second)
	if _, err := client.GetCustomer(context.Background(), "cust-1"); err == nil {
		t.Fatal("expected error for empty base url")
	}
}
