// ABOUTME: Turns a sensor state into what the card shows: name, rank, days, or a problem message.
package card

import (
	"fmt"

	"github.com/2389-research/streakhub/internal/homeassistant"
	"github.com/2389-research/streakhub/internal/i18n"
	"github.com/2389-research/streakhub/internal/streak"
)

// Display is the card's content for one render.
type Display struct {
	Name string
	Rank int
	Days int
	// Active is nil when no streak is running.
	Active *streak.Entry
	// Problem is a translated message shown instead of the streak.
	Problem string
}

// RankLabel returns "#1".."#3", or "" outside the podium.
func (d Display) RankLabel() string {
	if d.Rank < 1 || d.Rank > 3 {
		return ""
	}
	return fmt.Sprintf("#%d", d.Rank)
}

// Present builds the display from st. deviceName is the registry device name
// when the host knows it.
func Present(cfg Config, st *homeassistant.State, deviceName string, tr i18n.Translations) Display {
	switch {
	case st == nil:
		return Display{Name: cfg.Entity, Problem: tr.InvalidEntity}
	case st.Unavailable():
		return Display{Name: cfg.Entity, Problem: tr.Unavailable}
	case !st.IsStreakHub():
		return Display{Name: cfg.Entity, Problem: tr.InvalidData}
	}

	d := Display{
		Name:   displayName(cfg, st, deviceName),
		Rank:   st.Rank(),
		Active: st.Active(),
	}
	if d.Active != nil {
		d.Days = d.Active.Days
	}
	return d
}

func displayName(cfg Config, st *homeassistant.State, deviceName string) string {
	switch {
	case cfg.Name != "":
		return cfg.Name
	case deviceName != "":
		return deviceName
	case st.FriendlyName != "":
		return st.FriendlyName
	case cfg.Entity != "":
		return cfg.Entity
	}
	return "Unknown"
}
