package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/haxorport/tunnel-bridge/internal/domain/model"
	"github.com/haxorport/tunnel-bridge/internal/domain/port"
)

// StatusListener receives tunnel status transitions
type StatusListener func(status model.TunnelStatus)

// Tunnel addresses one native tunnel by its id
type Tunnel struct {
	id         string
	dispatcher *Dispatcher
	logger     port.Logger
}

// NewTunnelID returns a fresh opaque tunnel id
func NewTunnelID() string {
	return uuid.NewString()
}

// NewTunnel creates a handle for the tunnel with the given id
func NewTunnel(id string, dispatcher *Dispatcher, logger port.Logger) *Tunnel {
	return &Tunnel{
		id:         id,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// ID returns the tunnel id
func (t *Tunnel) ID() string {
	return t.id
}

// command prefixes args with the tunnel id
func (t *Tunnel) command(action string, args ...interface{}) model.Command {
	return model.NewCommand(action, append([]interface{}{t.id}, args...)...)
}

// StartAsync dispatches start. An absent config fails before anything is dispatched.
func (t *Tunnel) StartAsync(config *model.ServerConfig) (*Call, error) {
	if config.IsEmpty() {
		return nil, model.NewPluginError(model.IllegalServerConfiguration)
	}
	t.logger.Info("Starting tunnel %s", t.id)
	return t.dispatcher.Call(t.command(model.ActionStart, config)), nil
}

// Start starts the tunnel and waits for the native layer to confirm it
func (t *Tunnel) Start(ctx context.Context, config *model.ServerConfig) error {
	call, err := t.StartAsync(config)
	if err != nil {
		return err
	}
	if _, err := call.Await(ctx); err != nil {
		t.logger.Error("Failed to start tunnel %s: %v", t.id, err)
		return err
	}
	t.logger.Info("Tunnel %s started", t.id)
	return nil
}

// StopAsync dispatches stop
func (t *Tunnel) StopAsync() *Call {
	t.logger.Info("Stopping tunnel %s", t.id)
	return t.dispatcher.Call(t.command(model.ActionStop))
}

// Stop stops the tunnel and waits for the native answer
func (t *Tunnel) Stop(ctx context.Context) error {
	if _, err := t.StopAsync().Await(ctx); err != nil {
		t.logger.Error("Failed to stop tunnel %s: %v", t.id, err)
		return err
	}
	return nil
}

// IsRunningAsync dispatches isRunning
func (t *Tunnel) IsRunningAsync() *Call {
	return t.dispatcher.Call(t.command(model.ActionIsRunning))
}

// IsRunning reports whether the native tunnel is running
func (t *Tunnel) IsRunning(ctx context.Context) (bool, error) {
	return awaitBool(ctx, t.IsRunningAsync())
}

// IsReachableAsync dispatches isReachable with host and port unpacked.
// An absent config yields an already rejected call.
func (t *Tunnel) IsReachableAsync(config *model.ServerConfig) *Call {
	if config == nil {
		return failedCall(t.command(model.ActionIsReachable), model.NewPluginError(model.IllegalServerConfiguration))
	}
	return t.dispatcher.Call(t.command(model.ActionIsReachable, config.Host, config.Port))
}

// IsReachable reports whether the server in config can be reached
func (t *Tunnel) IsReachable(ctx context.Context, config *model.ServerConfig) (bool, error) {
	return awaitBool(ctx, t.IsReachableAsync(config))
}

// OnStatusChange registers listener for every status emitted for this tunnel.
// Registering again replaces the previous listener at the native layer.
// A listener that panics is logged and keeps receiving later events.
func (t *Tunnel) OnStatusChange(listener StatusListener) error {
	if listener == nil {
		return fmt.Errorf("status listener for tunnel %s is nil", t.id)
	}
	return t.dispatcher.Subscribe(t.command(model.ActionOnStatusChange), func(value interface{}) error {
		status, err := model.StatusFromValue(value)
		if err != nil {
			return err
		}
		t.logger.Debug("Tunnel %s status changed to %s", t.id, status)
		listener(status)
		return nil
	})
}

func awaitBool(ctx context.Context, call *Call) (bool, error) {
	value, err := call.Await(ctx)
	if err != nil {
		return false, err
	}
	result, err := model.BoolFromValue(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s result: %w", call.Command().Action, err)
	}
	return result, nil
}
