// Package report delivers classified incidents to the external reporting
// collaborator. Delivery is strictly best-effort: the caller's durable record
// is already committed before this package is ever involved.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"docsentry/internal/store"
)

// DefaultTimeout bounds one delivery attempt end to end.
const DefaultTimeout = 5 * time.Second

// IncidentPath is the collaborator endpoint receiving incident mirrors.
const IncidentPath = "/api/file-security-incident"

// Forwarder mirrors one incident to the reporting collaborator.
type Forwarder interface {
	Forward(ctx context.Context, in *store.Incident) error
}

// Client is the HTTP Forwarder.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client for the collaborator at baseURL. A zero timeout
// selects DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// payload is the wire shape the collaborator's ingestion endpoint accepts.
type payload struct {
	EventType       string `json:"eventType"`
	Operation       string `json:"operation"`
	OriginalFile    string `json:"originalFile,omitempty"`
	SourcePath      string `json:"sourcePath,omitempty"`
	DestinationPath string `json:"destinationPath,omitempty"`
	ProcessName     string `json:"processName,omitempty"`
	ContentHash     string `json:"contentHash,omitempty"`
	DetectedBy      string `json:"detectedBy,omitempty"`
	Severity        string `json:"severity"`
	Timestamp       string `json:"timestamp"`
}

// Forward posts one incident. Any non-2xx response is an error; the caller
// decides whether to count or log it, never to retry into a slow collaborator.
func (c *Client) Forward(ctx context.Context, in *store.Incident) error {
	body, err := json.Marshal(payload{
		EventType:       "PROTECTED_FILE_OPERATION",
		Operation:       in.OperationType,
		SourcePath:      in.SourcePath,
		DestinationPath: in.DestinationPath,
		ProcessName:     in.ProcessName,
		ContentHash:     in.ContentHash,
		DetectedBy:      in.DetectedBy,
		Severity:        in.Severity,
		Timestamp:       in.Timestamp.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal incident: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+IncidentPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post incident: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collaborator returned status %d", resp.StatusCode)
	}
	return nil
}
