package port

import "github.com/haxorport/tunnel-bridge/internal/domain/model"

// Callback receives a value from the native layer
type Callback func(value interface{})

// Channel is the cross-boundary capability that carries commands to a
// native tunnel implementation
type Channel interface {
	// Exec sends cmd to service. For request commands exactly one of
	// onSuccess or onError is invoked once, or never if the native layer
	// never answers. Subscription commands may invoke onSuccess repeatedly.
	// Exec must not block on the native work.
	Exec(service string, cmd model.Command, onSuccess Callback, onError Callback)
}
