// Package zendesk checks Zendesk API credentials before they are stored.
package zendesk

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/deskindex/deskindex/internal/config"
	"github.com/deskindex/deskindex/internal/models"
	"github.com/deskindex/deskindex/internal/retry"
)

const meEndpoint = "/api/v2/users/me.json"

var (
	// ErrUnauthorized means Zendesk rejected the email/token pair.
	ErrUnauthorized = errors.New("zendesk rejected the API token")
	// ErrUnknownSubdomain means the subdomain does not resolve to a Zendesk instance.
	ErrUnknownSubdomain = errors.New("zendesk subdomain not found")
)

// User is the subset of the Zendesk user object we care about.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Client verifies credentials against the Zendesk REST API.
type Client struct {
	instanceURL func(subdomain string) string
	http        *http.Client
	limiter     *rate.Limiter
	policy      retry.Policy
	logger      *slog.Logger
}

// NewClient creates a verifier for instances under cfg.BaseDomain.
func NewClient(cfg config.ZendeskConfig, logger *slog.Logger) *Client {
	baseDomain := cfg.BaseDomain
	return &Client{
		instanceURL: func(subdomain string) string {
			return fmt.Sprintf("https://%s.%s", subdomain, baseDomain)
		},
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		policy: retry.Policy{
			MaxRetries:     2,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     5 * time.Second,
			BackoffFactor:  2.0,
			Jitter:         true,
		},
		logger: logger,
	}
}

// InstanceURL returns the root URL of the Zendesk instance for subdomain.
func (c *Client) InstanceURL(subdomain string) string {
	return c.instanceURL(subdomain)
}

// Verify authenticates as the credential's user and returns it. Zendesk
// answers an unauthenticated "me" request with an anonymous user, which is
// treated as a rejection too.
func (c *Client) Verify(ctx context.Context, cred models.ZendeskCredentialJSON) (*User, error) {
	var user *User
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		var err error
		user, err = c.me(ctx, cred)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (c *Client) me(ctx context.Context, cred models.ZendeskCredentialJSON) (*User, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.InstanceURL(cred.Subdomain)+meEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build zendesk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+basicToken(cred.Email, cred.Token))

	resp, err := c.http.Do(req)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, ErrUnknownSubdomain
		}
		return nil, retry.Retryable(fmt.Errorf("zendesk request failed: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrUnknownSubdomain
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, retry.RetryableAfter(fmt.Errorf("zendesk rate limit exceeded"), retryAfter(resp.Header.Get("Retry-After")))
	case resp.StatusCode >= 500:
		return nil, retry.Retryable(fmt.Errorf("zendesk api returned %s", resp.Status))
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("zendesk api returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload struct {
		User *User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("zendesk api invalid json: %w", err)
	}
	if payload.User == nil || payload.User.ID == 0 {
		return nil, ErrUnauthorized
	}

	c.logger.Debug("zendesk credential verified", "subdomain", cred.Subdomain, "user_id", payload.User.ID, "role", payload.User.Role)
	return payload.User, nil
}

// basicToken formats the API token credentials as "email/token:api_token".
func basicToken(email, token string) string {
	return base64.StdEncoding.EncodeToString([]byte(email + "/token:" + token))
}

func retryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
