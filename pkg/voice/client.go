// Package voice submits outbound dealer calls to the voice agent service
// and reads its call status feed.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// CallRequest is one outbound call job. UserID carries the call reference
// that the agent echoes back in callbacks and the status feed.
type CallRequest struct {
	UserID       string `json:"user_id"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         string `json:"year"`
	ZipCode      string `json:"zipcode"`
	DealerName   string `json:"dealer_name"`
	PhoneNumber  string `json:"phone_number"`
	MSRP         string `json:"msrp"`
	ListingPrice string `json:"listing_price"`
}

// CallStatus is one record of the agent's status feed.
type CallStatus struct {
	UserID      string   `json:"user_id"`
	DealerName  string   `json:"dealer_name"`
	Status      string   `json:"status"`
	IsAvailable *bool    `json:"is_available"`
	DealPrice   *float64 `json:"deal_price"`
}

// Submitter is what the workflow and the follow-up dispatcher depend on.
type Submitter interface {
	SubmitCalls(ctx context.Context, calls []CallRequest) error
}

// StatusFeed returns the agent's current view of submitted calls.
type StatusFeed interface {
	CallStatuses(ctx context.Context) ([]CallStatus, error)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SubmitCalls posts the whole batch in one request. Only 200 and 201 count
// as acknowledged.
func (c *Client) SubmitCalls(ctx context.Context, calls []CallRequest) error {
	payload, err := json.Marshal(calls)
	if err != nil {
		return fmt.Errorf("marshal call requests: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/calls/init", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("voice agent returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (c *Client) CallStatuses(ctx context.Context) ([]CallStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/calls/status", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("voice agent returned status %d: %s", resp.StatusCode, string(body))
	}

	var out []CallStatus
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode call statuses: %w", err)
	}
	return out, nil
}

// NormalizeStatus folds the agent's status vocabulary into pending,
// completed or failed.
func NormalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "completed", "complete", "done", "finished", "success":
		return "completed"
	case "failed", "failure", "error", "no_answer", "busy", "cancelled", "canceled":
		return "failed"
	default:
		return "pending"
	}
}
