// ABOUTME: HTTP client for the Home Assistant REST API using a long-lived bearer token.
// ABOUTME: Reads StreakHub sensor state and calls services such as streakhub.set_streak_start.
package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/2389-research/streakhub/internal/streak"
)

// ServiceDomain and SetStreakStartService name the integration's reset service.
const (
	ServiceDomain         = "streakhub"
	SetStreakStartService = "set_streak_start"
)

// ServiceError is returned when Home Assistant answers with a non-2xx status.
type ServiceError struct {
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("home assistant returned %d", e.StatusCode)
	}
	return fmt.Sprintf("home assistant returned %d: %s", e.StatusCode, body)
}

// IsNotFound reports whether err is a 404 from Home Assistant.
func IsNotFound(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether err is a 401 from Home Assistant.
func IsUnauthorized(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized
}

// Client talks to one Home Assistant instance.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client with a 30s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient creates a client for baseURL (e.g. http://homeassistant.local:8123).
func NewClient(baseURL, token string, opts ...Option) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/api")
	c := &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized instance URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping checks that the API is reachable and the token is accepted.
func (c *Client) Ping(ctx context.Context) error {
	var resp struct {
		Message string `json:"message"`
	}
	return c.do(ctx, http.MethodGet, "/api/", nil, &resp)
}

// SetStreakStart calls streakhub.set_streak_start for entityID with an ISO date.
func (c *Client) SetStreakStart(ctx context.Context, entityID, isoDate string) error {
	return c.CallService(ctx, ServiceDomain, SetStreakStartService, map[string]any{
		"entity_id": entityID,
		"date":      isoDate,
	})
}

// CallService invokes domain.service with data as the request body.
func (c *Client) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	if domain == "" || service == "" {
		return fmt.Errorf("invalid service %q.%q", domain, service)
	}
	if data == nil {
		data = map[string]any{}
	}
	path := "/api/services/" + url.PathEscape(domain) + "/" + url.PathEscape(service)
	return c.do(ctx, http.MethodPost, path, data, nil)
}

// State is the subset of a Home Assistant entity state the card reads.
type State struct {
	EntityID     string
	State        string
	FriendlyName string
	// Top3 is nil when the entity has no top_3 list attribute.
	Top3        []streak.Entry
	LastChanged time.Time
}

// Unavailable reports whether Home Assistant marks the entity unavailable.
func (s *State) Unavailable() bool {
	return s.State == "unavailable"
}

// IsStreakHub reports whether the entity carries a top_3 list.
func (s *State) IsStreakHub() bool {
	return s.Top3 != nil
}

// Rank parses the sensor state as the current rank, 0 when not numeric.
func (s *State) Rank() int {
	n, err := strconv.Atoi(strings.TrimSpace(s.State))
	if err != nil {
		return 0
	}
	return n
}

// Active returns the running streak, if any.
func (s *State) Active() *streak.Entry {
	return streak.Active(s.Top3)
}

type stateResponse struct {
	EntityID    string                     `json:"entity_id"`
	State       string                     `json:"state"`
	Attributes  map[string]json.RawMessage `json:"attributes"`
	LastChanged time.Time                  `json:"last_changed"`
}

// GetState fetches /api/states/{entityID}.
func (c *Client) GetState(ctx context.Context, entityID string) (*State, error) {
	if entityID == "" {
		return nil, errors.New("entity id is required")
	}
	var resp stateResponse
	if err := c.do(ctx, http.MethodGet, "/api/states/"+url.PathEscape(entityID), nil, &resp); err != nil {
		return nil, err
	}
	return decodeState(resp)
}

func decodeState(resp stateResponse) (*State, error) {
	st := &State{
		EntityID:    resp.EntityID,
		State:       resp.State,
		LastChanged: resp.LastChanged,
	}
	if raw, ok := resp.Attributes["friendly_name"]; ok {
		_ = json.Unmarshal(raw, &st.FriendlyName)
	}
	raw, ok := resp.Attributes["top_3"]
	if !ok || !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		return st, nil
	}
	entries := []streak.Entry{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode top_3 for %s: %w", resp.EntityID, err)
	}
	st.Top3 = entries
	return st, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("home assistant request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &ServiceError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
