package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/haxorport/tunnel-bridge/internal/domain/model"
	"github.com/haxorport/tunnel-bridge/internal/domain/port"
)

// ErrCommandKind is returned when a command is dispatched through the wrong path
var ErrCommandKind = errors.New("command dispatched with the wrong kind")

// Call is the pending result of a request command
type Call struct {
	cmd   model.Command
	done  chan struct{}
	once  sync.Once
	value interface{}
	err   error
}

func newCall(cmd model.Command) *Call {
	return &Call{
		cmd:  cmd,
		done: make(chan struct{}),
	}
}

// failedCall returns a call that is already rejected with err
func failedCall(cmd model.Command, err error) *Call {
	call := newCall(cmd)
	call.resolve(nil, err)
	return call
}

// resolve settles the call. Only the first resolution counts.
func (c *Call) resolve(value interface{}, err error) bool {
	resolved := false
	c.once.Do(func() {
		c.value = value
		c.err = err
		resolved = true
		close(c.done)
	})
	return resolved
}

// Command returns the dispatched command
func (c *Call) Command() model.Command {
	return c.cmd
}

// Done is closed once the native layer has answered
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Await waits for the native answer. Cancelling ctx stops the wait
// but does not cancel the command.
func (c *Call) Await(ctx context.Context) (interface{}, error) {
	select {
	case <-c.done:
		return c.value, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dispatcher turns commands into single cross-boundary invocations
type Dispatcher struct {
	channel port.Channel
	service string
	logger  port.Logger
}

// NewDispatcher creates a Dispatcher that targets service on channel
func NewDispatcher(channel port.Channel, service string, logger port.Logger) *Dispatcher {
	if service == "" {
		service = model.DefaultServiceName
	}
	return &Dispatcher{
		channel: channel,
		service: service,
		logger:  logger,
	}
}

// Service returns the native target name
func (d *Dispatcher) Service() string {
	return d.service
}

// Call dispatches a request command and returns its pending result.
// Native error values are wrapped in a *model.PluginError.
func (d *Dispatcher) Call(cmd model.Command) *Call {
	if cmd.Kind() != model.KindRequest {
		return failedCall(cmd, fmt.Errorf("%w: %s is a %s command", ErrCommandKind, cmd.Action, cmd.Kind()))
	}

	call := newCall(cmd)
	d.logger.Debug("Dispatching %s to %s with %d args", cmd.Action, d.service, len(cmd.Args))

	d.channel.Exec(d.service, cmd,
		func(value interface{}) {
			if !call.resolve(value, nil) {
				d.logger.Debug("Ignoring extra result for %s", cmd.Action)
			}
		},
		func(value interface{}) {
			pluginErr := model.NewPluginError(model.CodeFromValue(value))
			if !call.resolve(nil, pluginErr) {
				d.logger.Debug("Ignoring extra error for %s: %v", cmd.Action, pluginErr)
			}
		},
	)

	return call
}

// Send dispatches a one-way command. Results are discarded and nothing
// raised by the channel reaches the caller.
func (d *Dispatcher) Send(cmd model.Command) {
	if cmd.Kind() != model.KindOneWay {
		d.logger.Error("Refusing to send %s: %s is a %s command", cmd.Action, cmd.Action, cmd.Kind())
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("One-way command %s failed: %v", cmd.Action, r)
		}
	}()

	noop := func(interface{}) {}
	d.logger.Debug("Sending %s to %s", cmd.Action, d.service)
	d.channel.Exec(d.service, cmd, noop, noop)
}

// EventHandler consumes one subscription value
type EventHandler func(value interface{}) error

// Subscribe dispatches a subscription command. Every success value is
// passed to handler. Handler errors and panics, as well as native error
// values, are logged as warnings and never propagate.
func (d *Dispatcher) Subscribe(cmd model.Command, handler EventHandler) error {
	if cmd.Kind() != model.KindSubscription {
		return fmt.Errorf("%w: %s is a %s command", ErrCommandKind, cmd.Action, cmd.Kind())
	}

	d.logger.Debug("Subscribing to %s on %s", cmd.Action, d.service)
	d.channel.Exec(d.service, cmd,
		func(value interface{}) {
			d.deliver(cmd, handler, value)
		},
		func(value interface{}) {
			d.logger.Warn("failed to execute %s listener: %v", cmd.Action, model.NewPluginError(model.CodeFromValue(value)))
		},
	)
	return nil
}

func (d *Dispatcher) deliver(cmd model.Command, handler EventHandler, value interface{}) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("failed to execute %s listener: %v", cmd.Action, r)
		}
	}()

	if err := handler(value); err != nil {
		d.logger.Warn("failed to execute %s listener: %v", cmd.Action, err)
	}
}
