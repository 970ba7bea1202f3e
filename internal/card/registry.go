// ABOUTME: Host-owned registry of card types, populated once at startup.
package card

import (
	"errors"
	"fmt"
	"sync"
)

// Info describes a card type for a host's card picker.
type Info struct {
	Type             string `json:"type"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	Preview          bool   `json:"preview"`
	DocumentationURL string `json:"documentationURL,omitempty"`
}

// StreakHubCard is this package's card entry.
var StreakHubCard = Info{
	Type:        "streakhub-card",
	Name:        "StreakHub Card",
	Description: "Visualize your streak progress with trophies",
	Preview:     true,
}

// Registry is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	cards []Info
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a card type. Types must be unique.
func (r *Registry) Register(info Info) error {
	if info.Type == "" {
		return errors.New("card type is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cards {
		if c.Type == info.Type {
			return fmt.Errorf("card type %q already registered", info.Type)
		}
	}
	r.cards = append(r.cards, info)
	return nil
}

// Lookup finds a registered type.
func (r *Registry) Lookup(cardType string) (Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cards {
		if c.Type == cardType {
			return c, true
		}
	}
	return Info{}, false
}

// Cards returns registered types in registration order.
func (r *Registry) Cards() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Info(nil), r.cards...)
}
