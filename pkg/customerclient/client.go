/**
 * @description
 * This package provides a client for communicating with the customer-service.
 * The ledger uses it for exactly one thing: the timeout-bounded "is this
 * customer active" lookup that backs account creation and consistency-cache
 * misses. The lookup fails closed — a timeout or transport error is reported to
 * the caller, never interpreted as "customer is active".
 */
package customerclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var ErrCustomerNotFound = errors.New("customer not found")

// Customer is the customer-service's view of one customer, reduced to the
// fields the ledger needs.
type Customer struct {
	CustomerID string `json:"customer_id"`
	FullName   string `json:"full_name"`
	Active     bool   `json:"active"`
}

// Client is a client for the customer service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new customer service client. The timeout bounds every
// lookup end to end, including connection setup.
func NewClient(baseURL string, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetCustomer fetches the current state of a customer by id.
func (c *Client) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("customer service base url is empty")
	}

	url := fmt.Sprintf("%s/internal/customers/%s", c.baseURL, customerID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Internal-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request to customer service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrCustomerNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("customer service returned error status %d", resp.StatusCode)
	}

	var customer Customer
	if err := json.NewDecoder(resp.Body).Decode(&customer); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &customer, nil
}
