package native

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/haxorport/tunnel-bridge/internal/domain/model"
	"github.com/haxorport/tunnel-bridge/internal/domain/port"
)

const (
	defaultProbeTimeout = 5 * time.Second
	eventBufferSize     = 32
)

// Prober checks whether host:port accepts connections
type Prober func(ctx context.Context, host string, port int) bool

// StartCheck may veto a start with an error code. NoError lets it proceed.
type StartCheck func(id string, config *model.ServerConfig) model.ErrorCode

// Option configures an Engine
type Option func(*Engine)

// WithProber replaces the TCP dial reachability probe
func WithProber(prober Prober) Option {
	return func(e *Engine) {
		e.prober = prober
	}
}

// WithStartCheck installs a hook consulted before a tunnel starts
func WithStartCheck(check StartCheck) Option {
	return func(e *Engine) {
		e.startCheck = check
	}
}

// WithQuit sets the hook invoked by quitApplication
func WithQuit(quit func()) Option {
	return func(e *Engine) {
		e.quit = quit
	}
}

// WithServiceName sets the service name the engine answers to
func WithServiceName(name string) Option {
	return func(e *Engine) {
		e.service = name
	}
}

// subscription delivers status events to one listener in order
type subscription struct {
	events chan model.TunnelStatus
	done   chan struct{}
}

func newSubscription(onEvent port.Callback) *subscription {
	s := &subscription{
		events: make(chan model.TunnelStatus, eventBufferSize),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case status := <-s.events:
				onEvent(status)
			case <-s.done:
				return
			}
		}
	}()
	return s
}

func (s *subscription) close() {
	close(s.done)
}

// Engine is an in-memory native layer. It keeps tunnel state, answers
// every bridge command and emits status events, without touching the
// network interface.
type Engine struct {
	mutex         sync.Mutex
	service       string
	running       map[string]*model.ServerConfig
	subscriptions map[string]*subscription
	apiKey        string
	reported      []string
	prober        Prober
	startCheck    StartCheck
	quit          func()
	logger        port.Logger
	closed        bool
}

// NewEngine creates a new Engine instance
func NewEngine(logger port.Logger, opts ...Option) *Engine {
	e := &Engine{
		service:       model.DefaultServiceName,
		running:       make(map[string]*model.ServerConfig),
		subscriptions: make(map[string]*subscription),
		prober:        DialProber(defaultProbeTimeout),
		logger:        logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DialProber returns a Prober that opens a TCP connection
func DialProber(timeout time.Duration) Prober {
	return func(ctx context.Context, host string, port int) bool {
		dialer := net.Dialer{Timeout: timeout}
		conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}
}

// Exec implements port.Channel. State changes are applied before Exec
// returns; callbacks run on their own goroutines.
func (e *Engine) Exec(service string, cmd model.Command, onSuccess port.Callback, onError port.Callback) {
	if service != e.service {
		e.logger.Warn("Unknown service %s for action %s", service, cmd.Action)
		go onError(model.Unexpected)
		return
	}

	switch cmd.Action {
	case model.ActionInitializeErrorReporting:
		e.initializeErrorReporting(cmd.Args, onSuccess, onError)
	case model.ActionReportEvents:
		e.reportEvents(cmd.Args, onSuccess, onError)
	case model.ActionQuitApplication:
		e.quitApplication()
	case model.ActionStart:
		e.start(cmd.Args, onSuccess, onError)
	case model.ActionStop:
		e.stop(cmd.Args, onSuccess, onError)
	case model.ActionIsRunning:
		e.isRunning(cmd.Args, onSuccess, onError)
	case model.ActionIsReachable:
		e.isReachable(cmd.Args, onSuccess, onError)
	case model.ActionOnStatusChange:
		e.onStatusChange(cmd.Args, onSuccess, onError)
	default:
		e.logger.Warn("Unknown action: %s", cmd.Action)
		go onError(model.Unexpected)
	}
}

func (e *Engine) initializeErrorReporting(args []interface{}, onSuccess, onError port.Callback) {
	apiKey, ok := stringArg(args, 0)
	if !ok || apiKey == "" {
		go onError(model.Unexpected)
		return
	}

	e.mutex.Lock()
	e.apiKey = apiKey
	e.mutex.Unlock()

	e.logger.Info("Error reporting initialized")
	go onSuccess(nil)
}

func (e *Engine) reportEvents(args []interface{}, onSuccess, onError port.Callback) {
	id, ok := stringArg(args, 0)
	if !ok || id == "" {
		go onError(model.Unexpected)
		return
	}

	e.mutex.Lock()
	if e.apiKey == "" {
		e.mutex.Unlock()
		e.logger.Warn("Events %s reported before error reporting was initialized", id)
		go onError(model.Unexpected)
		return
	}
	e.reported = append(e.reported, id)
	e.mutex.Unlock()

	go onSuccess(nil)
}

func (e *Engine) quitApplication() {
	e.logger.Info("Quit requested")
	if e.quit != nil {
		go e.quit()
	}
}

func (e *Engine) start(args []interface{}, onSuccess, onError port.Callback) {
	id, ok := stringArg(args, 0)
	if !ok || len(args) < 2 {
		go onError(model.IllegalServerConfiguration)
		return
	}

	config, err := serverConfigFromValue(args[1])
	if err != nil || config.Host == "" || config.Port <= 0 {
		e.logger.Warn("Rejecting tunnel %s: illegal server configuration", id)
		go onError(model.IllegalServerConfiguration)
		return
	}
	if config.Password == "" {
		go onError(model.InvalidServerCredentials)
		return
	}
	if e.startCheck != nil {
		if code := e.startCheck(id, config); code != model.NoError {
			e.logger.Warn("Tunnel %s failed to start: %s", id, code)
			go onError(code)
			return
		}
	}

	e.mutex.Lock()
	e.running[id] = config
	e.emitLocked(id, model.StatusConnected)
	e.mutex.Unlock()

	e.logger.Info("Tunnel %s connected to %s:%d", id, config.Host, config.Port)
	go onSuccess(nil)
}

func (e *Engine) stop(args []interface{}, onSuccess, onError port.Callback) {
	id, ok := stringArg(args, 0)
	if !ok {
		go onError(model.Unexpected)
		return
	}

	e.mutex.Lock()
	if _, running := e.running[id]; running {
		delete(e.running, id)
		e.emitLocked(id, model.StatusDisconnected)
	}
	e.mutex.Unlock()

	go onSuccess(nil)
}

func (e *Engine) isRunning(args []interface{}, onSuccess, onError port.Callback) {
	id, ok := stringArg(args, 0)
	if !ok {
		go onError(model.Unexpected)
		return
	}

	e.mutex.Lock()
	_, running := e.running[id]
	e.mutex.Unlock()

	go onSuccess(running)
}

func (e *Engine) isReachable(args []interface{}, onSuccess, onError port.Callback) {
	if _, ok := stringArg(args, 0); !ok || len(args) < 3 {
		go onError(model.IllegalServerConfiguration)
		return
	}
	host, ok := stringArg(args, 1)
	port, portOK := model.IntFromValue(args[2])
	if !ok || host == "" || !portOK || port <= 0 {
		go onError(model.IllegalServerConfiguration)
		return
	}

	go func() {
		onSuccess(e.prober(context.Background(), host, port))
	}()
}

func (e *Engine) onStatusChange(args []interface{}, onSuccess, onError port.Callback) {
	id, ok := stringArg(args, 0)
	if !ok {
		go onError(model.Unexpected)
		return
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed {
		return
	}
	if previous, exists := e.subscriptions[id]; exists {
		previous.close()
	}
	e.subscriptions[id] = newSubscription(onSuccess)
	e.logger.Debug("Status listener registered for tunnel %s", id)
}

// Emit publishes a status for a tunnel, as the platform would on
// connectivity changes
func (e *Engine) Emit(id string, status model.TunnelStatus) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.emitLocked(id, status)
}

func (e *Engine) emitLocked(id string, status model.TunnelStatus) {
	sub, ok := e.subscriptions[id]
	if !ok {
		return
	}
	select {
	case sub.events <- status:
	default:
		e.logger.Warn("Dropping status %s for tunnel %s: listener is not keeping up", status, id)
	}
}

// Reported returns the ids of reported event batches
func (e *Engine) Reported() []string {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	reported := make([]string, len(e.reported))
	copy(reported, e.reported)
	return reported
}

// Close stops every status subscription
func (e *Engine) Close() {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	for id, sub := range e.subscriptions {
		sub.close()
		delete(e.subscriptions, id)
	}
}

func stringArg(args []interface{}, index int) (string, bool) {
	if index >= len(args) {
		return "", false
	}
	s, ok := args[index].(string)
	return s, ok
}

// serverConfigFromValue accepts a config handed over in process or decoded from JSON
func serverConfigFromValue(v interface{}) (*model.ServerConfig, error) {
	switch c := v.(type) {
	case *model.ServerConfig:
		if c == nil {
			return nil, fmt.Errorf("server configuration is nil")
		}
		return c, nil
	case model.ServerConfig:
		return &c, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode server configuration: %v", err)
	}
	var config model.ServerConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to decode server configuration: %v", err)
	}
	return &config, nil
}

// Ensure Engine implements port.Channel
var _ port.Channel = (*Engine)(nil)
