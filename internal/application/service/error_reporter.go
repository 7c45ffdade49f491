package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/haxorport/tunnel-bridge/internal/domain/model"
	"github.com/haxorport/tunnel-bridge/internal/domain/port"
)

// ErrorReporter proxies error reporting calls to the native telemetry backend.
// It is independent of any tunnel.
type ErrorReporter struct {
	dispatcher *Dispatcher
	logger     port.Logger
}

// NewErrorReporter creates a new ErrorReporter instance
func NewErrorReporter(dispatcher *Dispatcher, logger port.Logger) *ErrorReporter {
	return &ErrorReporter{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// NewReportID returns a fresh id for a batch of reported events
func NewReportID() string {
	return uuid.NewString()
}

// InitializeAsync dispatches initializeErrorReporting
func (r *ErrorReporter) InitializeAsync(apiKey string) *Call {
	return r.dispatcher.Call(model.NewCommand(model.ActionInitializeErrorReporting, apiKey))
}

// Initialize sets up the native error reporting backend
func (r *ErrorReporter) Initialize(ctx context.Context, apiKey string) error {
	if _, err := r.InitializeAsync(apiKey).Await(ctx); err != nil {
		r.logger.Warn("Failed to initialize error reporting: %v", err)
		return err
	}
	r.logger.Info("Error reporting initialized")
	return nil
}

// SendAsync dispatches reportEvents
func (r *ErrorReporter) SendAsync(id string) *Call {
	return r.dispatcher.Call(model.NewCommand(model.ActionReportEvents, id))
}

// Send asks the native layer to deliver the events identified by id
func (r *ErrorReporter) Send(ctx context.Context, id string) error {
	if _, err := r.SendAsync(id).Await(ctx); err != nil {
		r.logger.Warn("Failed to report events %s: %v", id, err)
		return err
	}
	r.logger.Info("Events %s reported", id)
	return nil
}
