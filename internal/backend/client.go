// Package backend is a typed client for the connector management REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/deskindex/deskindex/internal/config"
	"github.com/deskindex/deskindex/internal/models"
	"github.com/deskindex/deskindex/internal/retry"
)

// Endpoint paths on the backend.
const (
	PathIndexingStatus  = "/api/manage/admin/connector/indexing-status"
	PathCredentials     = "/api/manage/credential"
	PathAdminCredential = "/api/manage/admin/credential/%d"
	PathConnectors      = "/api/manage/admin/connector"
	PathConnector       = "/api/manage/admin/connector/%d"
	PathCredentialLink  = "/api/manage/connector/%d/credential/%d"
	PathDeletionAttempt = "/api/manage/admin/deletion-attempt"
	PathHealth          = "/api/health"
)

const maxErrorBody = 64 << 10

// Observer receives timing for each backend call.
type Observer interface {
	ObserveBackendRequest(operation string, status int, duration time.Duration)
}

// Client talks to the connector management backend.
type Client struct {
	baseURL  string
	http     *http.Client
	tokens   TokenSource
	observer Observer
	policy   retry.Policy
	logger   *slog.Logger
}

// NewClient builds a client from configuration. observer may be nil.
func NewClient(cfg config.BackendConfig, logger *slog.Logger, observer Observer) *Client {
	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.MaxRetries

	return &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		http:     &http.Client{Timeout: cfg.Timeout},
		tokens:   newTokenSource(cfg.APIToken, cfg.JWTSecret),
		observer: observer,
		policy:   policy,
		logger:   logger,
	}
}

// ListIndexingStatuses returns every connector/credential pair with its latest
// index attempt.
func (c *Client) ListIndexingStatuses(ctx context.Context) ([]models.ConnectorIndexingStatus, error) {
	var statuses []models.ConnectorIndexingStatus
	if err := c.get(ctx, "list_indexing_statuses", PathIndexingStatus, &statuses); err != nil {
		return nil, err
	}
	if statuses == nil {
		statuses = []models.ConnectorIndexingStatus{}
	}
	return statuses, nil
}

// ListCredentials returns the credentials visible to the admin.
func (c *Client) ListCredentials(ctx context.Context) ([]models.Credential, error) {
	var credentials []models.Credential
	if err := c.get(ctx, "list_credentials", PathCredentials, &credentials); err != nil {
		return nil, err
	}
	if credentials == nil {
		credentials = []models.Credential{}
	}
	return credentials, nil
}

// CreateCredential stores a new credential.
func (c *Client) CreateCredential(ctx context.Context, base models.CredentialBase) (*models.Credential, error) {
	var created models.Credential
	if err := c.do(ctx, "create_credential", http.MethodPost, PathCredentials, base, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteCredential removes a credential using the admin endpoint.
func (c *Client) DeleteCredential(ctx context.Context, credentialID int) error {
	return c.do(ctx, "delete_credential", http.MethodDelete, fmt.Sprintf(PathAdminCredential, credentialID), nil, nil)
}

// CreateConnector registers a new connector.
func (c *Client) CreateConnector(ctx context.Context, base models.ConnectorBase) (*models.Connector, error) {
	var created models.Connector
	if err := c.do(ctx, "create_connector", http.MethodPost, PathConnectors, base, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateConnector replaces the mutable fields of a connector.
func (c *Client) UpdateConnector(ctx context.Context, connectorID int, base models.ConnectorBase) (*models.Connector, error) {
	var updated models.Connector
	if err := c.do(ctx, "update_connector", http.MethodPatch, fmt.Sprintf(PathConnector, connectorID), base, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// LinkCredential associates a credential with a connector under a cc pair name.
func (c *Client) LinkCredential(ctx context.Context, connectorID, credentialID int, name string) error {
	body := map[string]string{"name": name}
	return c.do(ctx, "link_credential", http.MethodPut, fmt.Sprintf(PathCredentialLink, connectorID, credentialID), body, nil)
}

// ScheduleDeletion asks the backend to delete a connector/credential pair and
// its indexed documents.
func (c *Client) ScheduleDeletion(ctx context.Context, connectorID, credentialID int) error {
	body := map[string]int{"connector_id": connectorID, "credential_id": credentialID}
	return c.do(ctx, "schedule_deletion", http.MethodPost, PathDeletionAttempt, body, nil)
}

// Health checks that the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "health", PathHealth, nil)
}

// get performs an idempotent GET, retrying transient failures.
func (c *Client) get(ctx context.Context, operation, path string, out any) error {
	return retry.Do(ctx, c.policy, func(ctx context.Context) error {
		err := c.do(ctx, operation, http.MethodGet, path, nil, out)
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if isTransientStatus(apiErr.StatusCode) {
				return retry.Retryable(err)
			}
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		return retry.Retryable(err)
	})
}

func (c *Client) do(ctx context.Context, operation, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", operation, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("%s: failed to obtain backend token: %w", operation, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(operation, 0, time.Since(start))
		c.logger.Warn("backend request failed", "operation", operation, "error", err)
		return fmt.Errorf("%s: request failed: %w", operation, err)
	}
	defer resp.Body.Close()
	c.observe(operation, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{Operation: operation, StatusCode: resp.StatusCode, Detail: errorDetail(raw)}
		c.logger.Warn("backend returned error", "operation", operation, "status", resp.StatusCode, "detail", apiErr.Detail)
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", operation, err)
	}
	return nil
}

func (c *Client) observe(operation string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveBackendRequest(operation, status, d)
	}
}

// errorDetail extracts the "detail" field the backend uses for error messages,
// falling back to the raw body.
func errorDetail(raw []byte) string {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Detail != nil {
		if s, ok := payload.Detail.(string); ok {
			return s
		}
		if b, err := json.Marshal(payload.Detail); err == nil {
			return string(b)
		}
	}
	return strings.TrimSpace(string(raw))
}
