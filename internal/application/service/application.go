package service

import "github.com/haxorport/tunnel-bridge/internal/domain/model"

// Application controls the host process through the native layer
type Application struct {
	dispatcher *Dispatcher
}

// NewApplication creates a new Application instance
func NewApplication(dispatcher *Dispatcher) *Application {
	return &Application{dispatcher: dispatcher}
}

// Quit asks the native layer to terminate the host process.
// The outcome is never observed.
func (a *Application) Quit() {
	a.dispatcher.Send(model.NewCommand(model.ActionQuitApplication))
}
