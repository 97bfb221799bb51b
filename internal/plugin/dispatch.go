package plugin

import (
	"context"
	"fmt"

	"github.com/ayusman/touchless/internal/gesture"
	"github.com/ayusman/touchless/internal/logging"
	"github.com/ayusman/touchless/internal/store"
)

// ActionSource looks up the action bound to a gesture kind. A nil action
// with a nil error means the gesture is unbound.
type ActionSource interface {
	GetByGesture(gesture string) (*store.Action, error)
}

// Dispatcher runs the plugin action bound to each accepted gesture.
type Dispatcher struct {
	actions  ActionSource
	manager  *Manager
	executor *Executor
	log      logging.Logger
}

// NewDispatcher wires bindings to plugins.
func NewDispatcher(actions ActionSource, manager *Manager, executor *Executor, log logging.Logger) *Dispatcher {
	if log == nil {
		log = logging.Nop()
	}
	return &Dispatcher{
		actions:  actions,
		manager:  manager,
		executor: executor,
		log:      log.With("component", "dispatch"),
	}
}

// Publish executes the action bound to ev.Kind. Unbound and disabled
// gestures are skipped without error.
func (d *Dispatcher) Publish(ctx context.Context, ev gesture.Event) error {
	action, err := d.actions.GetByGesture(string(ev.Kind))
	if err != nil {
		return fmt.Errorf("lookup action for %s: %w", ev.Kind, err)
	}
	if action == nil || !action.Enabled {
		return nil
	}

	p, err := d.manager.Get(action.PluginName)
	if err != nil {
		return fmt.Errorf("action %s: %w: %s", action.ID, err, action.PluginName)
	}
	if !p.Manifest.Supports(action.ActionName) {
		return fmt.Errorf("plugin %s does not support action %q", p.Manifest.Name, action.ActionName)
	}

	resp, err := d.executor.Execute(ctx, p, &Request{
		Action:    action.ActionName,
		Gesture:   string(ev.Kind),
		Source:    ev.Source,
		Timestamp: ev.Timestamp.UnixMilli(),
		Config:    action.Config,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("plugin %s action %s: %s", p.Manifest.Name, action.ActionName, resp.Error)
	}

	d.log.Infof("%s -> %s/%s", ev.Kind, p.Manifest.Name, action.ActionName)
	return nil
}
