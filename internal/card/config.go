// ABOUTME: Card configuration: entity binding, display options, and per-gesture actions.
// ABOUTME: Defaults are explicit and Validate rejects bad configs before anything renders.
package card

import (
	"errors"
	"fmt"
	"strings"

	"github.com/2389-research/streakhub/internal/i18n"
)

// ActionType is what a gesture does.
type ActionType string

const (
	ActionMoreInfo    ActionType = "more-info"
	ActionNone        ActionType = "none"
	ActionNavigate    ActionType = "navigate"
	ActionCallService ActionType = "call-service"
	ActionResetFlow   ActionType = "reset-flow"
)

// Valid reports whether a is a known action.
func (a ActionType) Valid() bool {
	switch a {
	case ActionMoreInfo, ActionNone, ActionNavigate, ActionCallService, ActionResetFlow:
		return true
	}
	return false
}

// ActionConfig configures one gesture's action.
type ActionConfig struct {
	Action         ActionType     `yaml:"action" json:"action"`
	NavigationPath string         `yaml:"navigation_path,omitempty" json:"navigation_path,omitempty"`
	Service        string         `yaml:"service,omitempty" json:"service,omitempty"`
	ServiceData    map[string]any `yaml:"service_data,omitempty" json:"service_data,omitempty"`
	// Target holds entity_id / device_id / area_id, merged into the service data.
	Target map[string]any `yaml:"target,omitempty" json:"target,omitempty"`
}

// Validate checks that the action carries what it needs.
func (a ActionConfig) Validate() error {
	if !a.Action.Valid() {
		return fmt.Errorf("unknown action %q", a.Action)
	}
	switch a.Action {
	case ActionNavigate:
		if a.NavigationPath == "" {
			return errors.New("navigate action requires navigation_path")
		}
	case ActionCallService:
		if _, _, err := ParseServiceName(a.Service); err != nil {
			return err
		}
	}
	return nil
}

// Variant is the card layout.
type Variant string

const (
	VariantStandard Variant = "standard"
	VariantCompact  Variant = "compact"
)

// ShowConfig toggles card elements.
type ShowConfig struct {
	Trophy bool `yaml:"trophy" json:"trophy"`
	Rank   bool `yaml:"rank" json:"rank"`
	Days   bool `yaml:"days" json:"days"`
	Name   bool `yaml:"name" json:"name"`
}

// Config is one card instance's configuration.
type Config struct {
	Entity          string       `yaml:"entity" json:"entity"`
	ServiceTarget   string       `yaml:"service_target,omitempty" json:"service_target,omitempty"`
	Name            string       `yaml:"name,omitempty" json:"name,omitempty"`
	Variant         Variant      `yaml:"variant" json:"variant"`
	Borderless      bool         `yaml:"borderless" json:"borderless"`
	Show            ShowConfig   `yaml:"show" json:"show"`
	TapAction       ActionConfig `yaml:"tap_action" json:"tap_action"`
	HoldAction      ActionConfig `yaml:"hold_action" json:"hold_action"`
	DoubleTapAction ActionConfig `yaml:"double_tap_action" json:"double_tap_action"`
	Language        i18n.Lang    `yaml:"language" json:"language"`
}

// DefaultConfig returns the defaults a partial config is decoded over.
func DefaultConfig() Config {
	return Config{
		Variant: VariantStandard,
		Show: ShowConfig{
			Trophy: true,
			Rank:   true,
			Days:   true,
			Name:   true,
		},
		TapAction:       ActionConfig{Action: ActionMoreInfo},
		HoldAction:      ActionConfig{Action: ActionResetFlow},
		DoubleTapAction: ActionConfig{Action: ActionNone},
		Language:        i18n.Auto,
	}
}

// Validate rejects configs the card cannot render or act on.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Entity) == "" {
		return errors.New("entity is required")
	}
	if c.Variant != VariantStandard && c.Variant != VariantCompact {
		return fmt.Errorf("invalid variant %q: must be \"standard\" or \"compact\"", c.Variant)
	}
	if !c.Language.Valid() {
		return fmt.Errorf("invalid language %q: must be auto, en, or de", c.Language)
	}
	actions := []struct {
		name string
		cfg  ActionConfig
	}{
		{"tap_action", c.TapAction},
		{"hold_action", c.HoldAction},
		{"double_tap_action", c.DoubleTapAction},
	}
	for _, a := range actions {
		if err := a.cfg.Validate(); err != nil {
			return fmt.Errorf("%s: %w", a.name, err)
		}
	}
	return nil
}

// Target is the entity passed to the reset service.
func (c Config) Target() string {
	if c.ServiceTarget != "" {
		return c.ServiceTarget
	}
	return c.Entity
}

// ParseServiceName splits "domain.service".
func ParseServiceName(s string) (domain, service string, err error) {
	domain, service, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok || domain == "" || service == "" || strings.Contains(service, ".") {
		return "", "", fmt.Errorf("invalid service %q: want domain.service", s)
	}
	return domain, service, nil
}
