// ABOUTME: Live Home Assistant checks run by the setup wizard between steps.
// ABOUTME: CheckToken hits /api/ and LookupEntity reads the rank sensor state.
package tui

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/2389-research/streakhub/internal/homeassistant"
)

const checkTimeout = 10 * time.Second

// Checks are the calls the wizard makes against Home Assistant.
type Checks struct {
	Token  func(ctx context.Context, haURL, token string) error
	Entity func(ctx context.Context, haURL, token, entityID string) (*homeassistant.State, error)
}

// LiveChecks talks to a real instance.
func LiveChecks() Checks {
	return Checks{Token: CheckToken, Entity: LookupEntity}
}

func newCheckClient(haURL, token string) *homeassistant.Client {
	return homeassistant.NewClient(haURL, token,
		homeassistant.WithHTTPClient(&http.Client{Timeout: checkTimeout}))
}

// CheckToken confirms the instance answers and accepts the token.
func CheckToken(ctx context.Context, haURL, token string) error {
	if err := newCheckClient(haURL, token).Ping(ctx); err != nil {
		if homeassistant.IsUnauthorized(err) {
			return fmt.Errorf("token rejected by Home Assistant")
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	return nil
}

// LookupEntity fetches the entity and requires it to be a StreakHub rank sensor.
func LookupEntity(ctx context.Context, haURL, token, entityID string) (*homeassistant.State, error) {
	st, err := newCheckClient(haURL, token).GetState(ctx, entityID)
	if err != nil {
		switch {
		case homeassistant.IsNotFound(err):
			return nil, fmt.Errorf("entity %s not found", entityID)
		case homeassistant.IsUnauthorized(err):
			return nil, fmt.Errorf("token rejected by Home Assistant")
		}
		return nil, fmt.Errorf("failed to read %s: %w", entityID, err)
	}
	if !st.IsStreakHub() {
		return nil, fmt.Errorf("%s has no top_3 attribute; is it a StreakHub rank sensor?", entityID)
	}
	return st, nil
}
