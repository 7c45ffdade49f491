package transport

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/haxorport/tunnel-bridge/internal/domain/model"
	"github.com/haxorport/tunnel-bridge/internal/domain/port"
)

const (
	pingInterval      = 30 * time.Second
	reconnectInterval = 5 * time.Second
	handshakeTimeout  = 10 * time.Second
	writeTimeout      = 10 * time.Second
)

// ErrChannelClosed is returned when the channel has been closed
var ErrChannelClosed = errors.New("channel closed")

// pendingExec is an exec frame waiting for results
type pendingExec struct {
	id        string
	service   string
	cmd       model.Command
	onSuccess port.Callback
	onError   port.Callback
}

// subscriptionKey identifies a subscription target. A later registration
// with the same key replaces the earlier one.
func (e *pendingExec) subscriptionKey() string {
	target := ""
	if len(e.cmd.Args) > 0 {
		target = fmt.Sprint(e.cmd.Args[0])
	}
	return e.service + "\x00" + e.cmd.Action + "\x00" + target
}

// dialAttempt is one background connection attempt
type dialAttempt struct {
	done chan struct{}
	err  error
}

// WebSocketChannel carries bridge commands to a native host over WebSocket
type WebSocketChannel struct {
	serverURL     string
	dialer        *websocket.Dialer
	conn          *websocket.Conn
	isConnected   bool
	reconnecting  bool
	closed        bool
	dialing       *dialAttempt
	mutex         sync.Mutex
	writeMutex    sync.Mutex
	pending       map[string]*pendingExec
	subscriptions map[string]*pendingExec
	subKeys       map[string]string
	queue         []*pendingExec
	logger        port.Logger
	stop          chan struct{}
}

// ServerURL builds the bridge endpoint URL from the configuration
func ServerURL(config *model.Config) string {
	protocol := "ws"
	if config.TLSEnabled {
		protocol = "wss"
	}
	return fmt.Sprintf("%s://%s:%d/bridge", protocol, config.ServerAddress, config.ControlPort)
}

// TLSConfig builds the client TLS configuration, loading the client
// certificate when one is configured
func TLSConfig(config *model.Config) (*tls.Config, error) {
	if !config.TLSEnabled {
		return nil, nil
	}
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if config.TLSCert != "" && config.TLSKey != "" {
		cert, err := tls.LoadX509KeyPair(config.TLSCert, config.TLSKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS certificate: %v", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}

// NewWebSocketChannel creates a channel to serverURL. tlsConfig may be nil.
func NewWebSocketChannel(serverURL string, tlsConfig *tls.Config, logger port.Logger) *WebSocketChannel {
	return &WebSocketChannel{
		serverURL: serverURL,
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
			TLSClientConfig:  tlsConfig,
		},
		pending:       make(map[string]*pendingExec),
		subscriptions: make(map[string]*pendingExec),
		subKeys:       make(map[string]string),
		logger:        logger,
		stop:          make(chan struct{}),
	}
}

// Connect establishes the connection and waits for the outcome.
// Queued frames and active subscriptions are sent once connected.
func (c *WebSocketChannel) Connect() error {
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return ErrChannelClosed
	}
	if c.isConnected {
		c.mutex.Unlock()
		return nil
	}
	attempt := c.startDialLocked()
	c.mutex.Unlock()

	<-attempt.done
	return attempt.err
}

// startDialLocked starts a background dial unless one is running.
// c.mutex must be held.
func (c *WebSocketChannel) startDialLocked() *dialAttempt {
	if c.dialing != nil {
		return c.dialing
	}
	attempt := &dialAttempt{done: make(chan struct{})}
	c.dialing = attempt
	go c.dial(attempt)
	return attempt
}

func (c *WebSocketChannel) dial(attempt *dialAttempt) {
	defer close(attempt.done)

	u, err := url.Parse(c.serverURL)
	var conn *websocket.Conn
	if err != nil {
		err = fmt.Errorf("invalid URL: %v", err)
	} else {
		c.logger.Info("Connecting to native host: %s", u.String())
		conn, _, err = c.dialer.Dial(u.String(), nil)
		if err != nil {
			err = fmt.Errorf("failed to connect to native host: %v", err)
		}
	}

	c.mutex.Lock()
	c.dialing = nil

	if c.closed {
		c.mutex.Unlock()
		if conn != nil {
			conn.Close()
		}
		attempt.err = ErrChannelClosed
		return
	}

	if err != nil {
		// Subscriptions stay registered for the next attempt
		var failed []*pendingExec
		for _, exec := range c.queue {
			if exec.cmd.Kind() == model.KindRequest && c.pending[exec.id] == exec {
				delete(c.pending, exec.id)
				failed = append(failed, exec)
			}
		}
		c.queue = nil
		c.mutex.Unlock()
		attempt.err = err
		failPending(failed)
		return
	}

	c.conn = conn
	c.isConnected = true

	for id, sub := range c.subscriptions {
		c.pending[id] = sub
		if err := c.writeExecLocked(sub); err != nil {
			c.logger.Warn("Failed to re-issue %s subscription: %v", sub.cmd.Action, err)
		}
	}

	var failed []*pendingExec
	for _, exec := range c.queue {
		switch exec.cmd.Kind() {
		case model.KindSubscription:
			continue
		case model.KindRequest:
			if c.pending[exec.id] != exec {
				continue
			}
		}
		if err := c.writeExecLocked(exec); err != nil {
			c.logger.Error("Failed to dispatch %s: %v", exec.cmd.Action, err)
			if exec.cmd.Kind() == model.KindRequest {
				delete(c.pending, exec.id)
				failed = append(failed, exec)
			}
		}
	}
	c.queue = nil

	go c.readPump(conn)
	c.mutex.Unlock()

	c.logger.Info("Connected to native host: %s", u.String())
	failPending(failed)
}

// Close closes the connection and fails every pending request
func (c *WebSocketChannel) Close() {
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return
	}
	c.closed = true
	close(c.stop)
	conn := c.conn
	c.conn = nil
	c.isConnected = false
	failed := c.takePendingLocked()
	c.queue = nil
	c.subscriptions = make(map[string]*pendingExec)
	c.subKeys = make(map[string]string)
	c.mutex.Unlock()

	if conn != nil {
		c.logger.Info("Closing connection")
		conn.Close()
	}
	failPending(failed)
}

// IsConnected returns whether the channel is connected
func (c *WebSocketChannel) IsConnected() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.isConnected
}

// RunWithReconnect keeps the connection alive in the background
func (c *WebSocketChannel) RunWithReconnect() {
	c.mutex.Lock()
	if c.reconnecting || c.closed {
		c.mutex.Unlock()
		return
	}
	c.reconnecting = true
	c.mutex.Unlock()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
			}
			if c.IsConnected() {
				continue
			}
			c.logger.Info("Reconnecting to native host...")
			if err := c.Connect(); err != nil {
				if errors.Is(err, ErrChannelClosed) {
					return
				}
				c.logger.Error("Failed to reconnect: %v", err)
				select {
				case <-c.stop:
					return
				case <-time.After(reconnectInterval):
				}
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
			}
			if !c.IsConnected() {
				continue
			}
			frame, err := model.NewFrame(model.FrameTypePing, nil)
			if err != nil {
				c.logger.Error("Failed to create ping frame: %v", err)
				continue
			}
			if err := c.sendFrame(frame); err != nil {
				c.logger.Error("Failed to send ping: %v", err)
			}
		}
	}()
}

// Exec implements port.Channel. While disconnected the frame is queued
// and a connection attempt runs in the background.
func (c *WebSocketChannel) Exec(service string, cmd model.Command, onSuccess port.Callback, onError port.Callback) {
	exec := &pendingExec{
		id:        uuid.NewString(),
		service:   service,
		cmd:       cmd,
		onSuccess: onSuccess,
		onError:   onError,
	}

	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		c.logger.Error("Cannot dispatch %s: %v", cmd.Action, ErrChannelClosed)
		if cmd.Kind() == model.KindRequest {
			go onError(model.Unexpected)
		}
		return
	}

	switch cmd.Kind() {
	case model.KindRequest:
		c.pending[exec.id] = exec
	case model.KindSubscription:
		c.registerSubscriptionLocked(exec)
	}

	if !c.isConnected {
		c.queue = append(c.queue, exec)
		c.startDialLocked()
		c.mutex.Unlock()
		return
	}

	err := c.writeExecLocked(exec)
	if err != nil && cmd.Kind() == model.KindRequest {
		delete(c.pending, exec.id)
	}
	c.mutex.Unlock()

	if err != nil {
		c.logger.Error("Failed to dispatch %s: %v", cmd.Action, err)
		if cmd.Kind() == model.KindRequest {
			go onError(model.Unexpected)
		}
	}
}

// registerSubscriptionLocked stores exec and drops the subscription it
// replaces. c.mutex must be held.
func (c *WebSocketChannel) registerSubscriptionLocked(exec *pendingExec) {
	key := exec.subscriptionKey()
	if previous, ok := c.subKeys[key]; ok {
		delete(c.pending, previous)
		delete(c.subscriptions, previous)
	}
	c.subKeys[key] = exec.id
	c.pending[exec.id] = exec
	c.subscriptions[exec.id] = exec
}

// forgetSubscriptionLocked removes a subscription that the native host
// ended. c.mutex must be held.
func (c *WebSocketChannel) forgetSubscriptionLocked(exec *pendingExec) {
	delete(c.subscriptions, exec.id)
	key := exec.subscriptionKey()
	if c.subKeys[key] == exec.id {
		delete(c.subKeys, key)
	}
}

// writeExecLocked sends an exec frame. c.mutex must be held.
func (c *WebSocketChannel) writeExecLocked(exec *pendingExec) error {
	if !c.isConnected || c.conn == nil {
		return fmt.Errorf("not connected to native host")
	}

	args := exec.cmd.Args
	if args == nil {
		args = []interface{}{}
	}
	frame, err := model.NewFrame(model.FrameTypeExec, model.ExecPayload{
		CallbackID: exec.id,
		Service:    exec.service,
		Action:     exec.cmd.Action,
		Args:       args,
	})
	if err != nil {
		return err
	}
	return c.writeFrame(c.conn, frame)
}

// sendFrame sends a frame on the current connection
func (c *WebSocketChannel) sendFrame(frame *model.Frame) error {
	c.mutex.Lock()
	conn := c.conn
	connected := c.isConnected
	c.mutex.Unlock()

	if !connected || conn == nil {
		return fmt.Errorf("not connected to native host")
	}
	return c.writeFrame(conn, frame)
}

func (c *WebSocketChannel) writeFrame(conn *websocket.Conn, frame *model.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to convert frame to JSON: %v", err)
	}

	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send frame: %v", err)
	}
	return nil
}

// readPump reads frames from the native host
func (c *WebSocketChannel) readPump(conn *websocket.Conn) {
	defer c.dropConnection(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.logger.Debug("Read loop stopped: %v", err)
			}
			return
		}

		var frame model.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Error("Failed to parse frame: %v", err)
			continue
		}

		switch frame.Type {
		case model.FrameTypePong:
		case model.FrameTypeSuccess, model.FrameTypeError:
			c.handleResult(&frame)
		default:
			c.logger.Error("No handler for frame type: %s", frame.Type)
		}
	}
}

func (c *WebSocketChannel) handleResult(frame *model.Frame) {
	var result model.ResultPayload
	if err := frame.ParsePayload(&result); err != nil {
		c.logger.Error("Failed to parse result: %v", err)
		return
	}

	c.mutex.Lock()
	exec, ok := c.pending[result.CallbackID]
	if ok && !result.Keep {
		delete(c.pending, result.CallbackID)
		if exec.cmd.Kind() == model.KindSubscription {
			c.forgetSubscriptionLocked(exec)
		}
	}
	c.mutex.Unlock()

	if !ok {
		c.logger.Debug("Dropping result for unknown callback %s", result.CallbackID)
		return
	}

	value := decodeValue(result.Value)
	if frame.Type == model.FrameTypeSuccess {
		exec.onSuccess(value)
	} else {
		exec.onError(value)
	}
}

// dropConnection marks the connection lost. Pending requests fail with
// Unexpected; subscriptions wait for the next Connect.
func (c *WebSocketChannel) dropConnection(conn *websocket.Conn) {
	c.mutex.Lock()
	if c.conn != conn {
		c.mutex.Unlock()
		return
	}
	c.conn = nil
	c.isConnected = false
	failed := c.takePendingLocked()
	c.mutex.Unlock()

	conn.Close()
	c.logger.Warn("Connection to native host lost")
	failPending(failed)
}

// takePendingLocked removes pending requests. c.mutex must be held.
func (c *WebSocketChannel) takePendingLocked() []*pendingExec {
	var failed []*pendingExec
	for id, exec := range c.pending {
		delete(c.pending, id)
		if exec.cmd.Kind() == model.KindRequest {
			failed = append(failed, exec)
		}
	}
	return failed
}

func failPending(failed []*pendingExec) {
	for _, exec := range failed {
		exec.onError(model.Unexpected)
	}
}

func decodeValue(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return raw
	}
	return value
}

// Ensure WebSocketChannel implements port.Channel
var _ port.Channel = (*WebSocketChannel)(nil)
