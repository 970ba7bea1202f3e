// ABOUTME: Binds a gesture detector to a card and runs the configured action per gesture.
// ABOUTME: Actions go to an explicit Host rather than bubbling events up a UI tree.
package card

import (
	"context"
	"fmt"
	"time"

	"github.com/2389-research/streakhub/internal/gesture"
	"github.com/2389-research/streakhub/internal/logger"
)

// Host carries out actions on behalf of the card.
type Host interface {
	MoreInfo(entityID string)
	Navigate(path string)
	CallService(ctx context.Context, domain, service string, data map[string]any) error
	OpenResetFlow()
}

// serviceTimeout bounds call-service actions started from a gesture.
const serviceTimeout = 30 * time.Second

// Dispatcher owns one card's gesture detector.
type Dispatcher struct {
	cfg      Config
	host     Host
	detector *gesture.Detector
}

// NewDispatcher wires tap, hold and double tap to the card's actions. A gesture
// whose action is "none" is left unregistered, so a card without a double-tap
// action gets immediate taps.
func NewDispatcher(cfg Config, host Host, opts ...gesture.Option) *Dispatcher {
	d := &Dispatcher{cfg: cfg, host: host}

	var h gesture.Handlers
	if cfg.TapAction.Action != ActionNone {
		h.OnTap = func() { d.fire("tap", cfg.TapAction) }
	}
	if cfg.HoldAction.Action != ActionNone {
		h.OnHold = func() { d.fire("hold", cfg.HoldAction) }
	}
	if cfg.DoubleTapAction.Action != ActionNone {
		h.OnDoubleTap = func() { d.fire("double_tap", cfg.DoubleTapAction) }
	}
	d.detector = gesture.New(h, opts...)
	return d
}

// Detector exposes the pointer inputs.
func (d *Dispatcher) Detector() *gesture.Detector {
	return d.detector
}

// PointerDown forwards to the detector.
func (d *Dispatcher) PointerDown(x, y float64, t time.Time) { d.detector.PointerDown(x, y, t) }

// PointerUp forwards to the detector.
func (d *Dispatcher) PointerUp(x, y float64, t time.Time) { d.detector.PointerUp(x, y, t) }

// PointerCancel forwards to the detector.
func (d *Dispatcher) PointerCancel() { d.detector.PointerCancel() }

// Pressed reports whether the detector is tracking a press.
func (d *Dispatcher) Pressed() bool { return d.detector.Pressed() }

func (d *Dispatcher) fire(gestureName string, a ActionConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), serviceTimeout)
	defer cancel()
	if err := d.Execute(ctx, a); err != nil {
		logger.Warn("card action failed", "gesture", gestureName, "action", a.Action, "err", err)
	}
}

// Execute runs a single action against the host.
func (d *Dispatcher) Execute(ctx context.Context, a ActionConfig) error {
	switch a.Action {
	case ActionNone:
		return nil
	case ActionResetFlow:
		d.host.OpenResetFlow()
	case ActionMoreInfo:
		d.host.MoreInfo(d.cfg.Entity)
	case ActionNavigate:
		if a.NavigationPath != "" {
			d.host.Navigate(a.NavigationPath)
		}
	case ActionCallService:
		domain, service, err := ParseServiceName(a.Service)
		if err != nil {
			return err
		}
		if err := d.host.CallService(ctx, domain, service, ServiceData(a)); err != nil {
			return fmt.Errorf("call %s.%s: %w", domain, service, err)
		}
	default:
		return fmt.Errorf("unknown action %q", a.Action)
	}
	return nil
}

// ServiceData merges the action's target into a copy of its service data.
func ServiceData(a ActionConfig) map[string]any {
	data := make(map[string]any, len(a.ServiceData)+len(a.Target))
	for k, v := range a.ServiceData {
		data[k] = v
	}
	for k, v := range a.Target {
		data[k] = v
	}
	return data
}
