package model

// DefaultServiceName is the native target that receives every command
const DefaultServiceName = "OutlinePlugin"

// Action names understood by the native layer
const (
	ActionInitializeErrorReporting = "initializeErrorReporting"
	ActionReportEvents             = "reportEvents"
	ActionQuitApplication          = "quitApplication"
	ActionStart                    = "start"
	ActionStop                     = "stop"
	ActionIsRunning                = "isRunning"
	ActionIsReachable              = "isReachable"
	ActionOnStatusChange           = "onStatusChange"
)

// CommandKind describes how the result of a command is observed
type CommandKind int

const (
	// KindRequest resolves exactly once with a value or an error code
	KindRequest CommandKind = iota
	// KindOneWay has no observable result
	KindOneWay
	// KindSubscription delivers values repeatedly until replaced
	KindSubscription
)

// String returns the name of the kind
func (k CommandKind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindOneWay:
		return "one-way"
	case KindSubscription:
		return "subscription"
	default:
		return "unknown"
	}
}

var commandKinds = map[string]CommandKind{
	ActionInitializeErrorReporting: KindRequest,
	ActionReportEvents:             KindRequest,
	ActionQuitApplication:          KindOneWay,
	ActionStart:                    KindRequest,
	ActionStop:                     KindRequest,
	ActionIsRunning:                KindRequest,
	ActionIsReachable:              KindRequest,
	ActionOnStatusChange:           KindSubscription,
}

// KindOf returns the kind of a known action. Unknown actions are requests.
func KindOf(action string) CommandKind {
	if kind, ok := commandKinds[action]; ok {
		return kind
	}
	return KindRequest
}

// Command is a named action with positional arguments.
// Argument order must match the native signature exactly.
type Command struct {
	Action string
	Args   []interface{}
}

// NewCommand creates a Command. The argument slice is copied.
func NewCommand(action string, args ...interface{}) Command {
	copied := make([]interface{}, len(args))
	copy(copied, args)
	return Command{Action: action, Args: copied}
}

// Kind returns the kind of the command
func (c Command) Kind() CommandKind {
	return KindOf(c.Action)
}
