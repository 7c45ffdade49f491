package transport

import (
	"context"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haxorport/tunnel-bridge/internal/application/service"
	"github.com/haxorport/tunnel-bridge/internal/domain/model"
	"github.com/haxorport/tunnel-bridge/internal/infrastructure/logger"
	"github.com/haxorport/tunnel-bridge/internal/infrastructure/native"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bridgeFixture struct {
	engine  *native.Engine
	server  *httptest.Server
	channel *WebSocketChannel
	tunnel  *service.Tunnel
	disp    *service.Dispatcher
}

func newBridgeFixture(t *testing.T, opts ...native.Option) *bridgeFixture {
	t.Helper()
	log := logger.NewLogger(io.Discard, "error")

	engine := native.NewEngine(log, opts...)
	server := httptest.NewServer(NewServer(engine, log))
	channel := NewWebSocketChannel("ws"+strings.TrimPrefix(server.URL, "http"), nil, log)
	require.NoError(t, channel.Connect())

	disp := service.NewDispatcher(channel, "", log)
	f := &bridgeFixture{
		engine:  engine,
		server:  server,
		channel: channel,
		disp:    disp,
		tunnel:  service.NewTunnel("remote-1", disp, log),
	}
	t.Cleanup(func() {
		channel.Close()
		server.Close()
		engine.Close()
	})
	return f
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestServerURL(t *testing.T) {
	cfg := model.NewConfig()
	assert.Equal(t, "ws://127.0.0.1:9090/bridge", ServerURL(cfg))
	cfg.TLSEnabled = true
	cfg.ServerAddress = "native.local"
	assert.Equal(t, "wss://native.local:9090/bridge", ServerURL(cfg))

	tlsConfig, err := TLSConfig(cfg)
	require.NoError(t, err)
	assert.NotNil(t, tlsConfig)
}

func TestWebSocketTunnelLifecycle(t *testing.T) {
	f := newBridgeFixture(t)
	ctx := testContext(t)

	statuses := make(chan model.TunnelStatus, 4)
	require.NoError(t, f.tunnel.OnStatusChange(func(status model.TunnelStatus) {
		statuses <- status
	}))

	require.NoError(t, f.tunnel.Start(ctx, &model.ServerConfig{Host: "10.0.0.1", Port: 8388, Password: "pw"}))
	running, err := f.tunnel.IsRunning(ctx)
	require.NoError(t, err)
	assert.True(t, running)

	require.NoError(t, f.tunnel.Stop(ctx))
	running, err = f.tunnel.IsRunning(ctx)
	require.NoError(t, err)
	assert.False(t, running)

	assert.Equal(t, model.StatusConnected, <-statuses)
	assert.Equal(t, model.StatusDisconnected, <-statuses)
}

func TestWebSocketErrorCodesSurviveTheWire(t *testing.T) {
	f := newBridgeFixture(t, native.WithStartCheck(func(string, *model.ServerConfig) model.ErrorCode {
		return model.UnsupportedRoutingTable
	}))
	ctx := testContext(t)

	err := f.tunnel.Start(ctx, &model.ServerConfig{Host: "10.0.0.1", Port: 8388, Password: "pw"})
	assert.Equal(t, model.UnsupportedRoutingTable, model.CodeOf(err))

	err = f.tunnel.Start(ctx, &model.ServerConfig{Host: "10.0.0.1", Port: 8388})
	assert.Equal(t, model.InvalidServerCredentials, model.CodeOf(err))
}

func TestWebSocketIsReachable(t *testing.T) {
	f := newBridgeFixture(t, native.WithProber(func(_ context.Context, host string, port int) bool {
		return host == "example.com" && port == 443
	}))
	ctx := testContext(t)

	reachable, err := f.tunnel.IsReachable(ctx, &model.ServerConfig{Host: "example.com", Port: 443})
	require.NoError(t, err)
	assert.True(t, reachable)

	reachable, err = f.tunnel.IsReachable(ctx, &model.ServerConfig{Host: "example.com", Port: 80})
	require.NoError(t, err)
	assert.False(t, reachable)
}

func TestWebSocketErrorReportingAndQuit(t *testing.T) {
	quit := make(chan struct{}, 1)
	f := newBridgeFixture(t, native.WithQuit(func() { quit <- struct{}{} }))
	ctx := testContext(t)

	reporter := service.NewErrorReporter(f.disp, logger.NewLogger(io.Discard, "error"))
	require.NoError(t, reporter.Initialize(ctx, "key"))
	require.NoError(t, reporter.Send(ctx, "batch-7"))
	assert.Equal(t, []string{"batch-7"}, f.engine.Reported())

	service.NewApplication(f.disp).Quit()
	select {
	case <-quit:
	case <-time.After(2 * time.Second):
		t.Fatal("quit did not reach the native host")
	}
}

func TestPendingCallsFailWhenConnectionDrops(t *testing.T) {
	log := logger.NewLogger(io.Discard, "error")
	release := make(chan struct{})
	defer close(release)
	engine := native.NewEngine(log, native.WithProber(func(context.Context, string, int) bool {
		<-release
		return false
	}))
	defer engine.Close()
	server := httptest.NewServer(NewServer(engine, log))
	defer server.Close()

	channel := NewWebSocketChannel("ws"+strings.TrimPrefix(server.URL, "http"), nil, log)
	require.NoError(t, channel.Connect())
	tunnel := service.NewTunnel("t1", service.NewDispatcher(channel, "", log), log)

	call := tunnel.IsReachableAsync(&model.ServerConfig{Host: "example.com", Port: 443})
	channel.Close()

	_, err := call.Await(testContext(t))
	assert.Equal(t, model.Unexpected, model.CodeOf(err))
	assert.False(t, channel.IsConnected())
	assert.ErrorIs(t, channel.Connect(), ErrChannelClosed)
}

func TestLatestSubscriptionSurvivesReconnect(t *testing.T) {
	f := newBridgeFixture(t)

	var first int32
	latest := make(chan model.TunnelStatus, 1)
	require.NoError(t, f.tunnel.OnStatusChange(func(model.TunnelStatus) {
		atomic.AddInt32(&first, 1)
	}))
	require.NoError(t, f.tunnel.OnStatusChange(func(status model.TunnelStatus) {
		select {
		case latest <- status:
		default:
		}
	}))

	f.channel.mutex.Lock()
	assert.Len(t, f.channel.subscriptions, 1)
	assert.Len(t, f.channel.subKeys, 1)
	conn := f.channel.conn
	f.channel.mutex.Unlock()

	conn.Close()
	require.Eventually(t, func() bool { return !f.channel.IsConnected() }, 5*time.Second, 10*time.Millisecond)

	f.channel.RunWithReconnect()
	require.Eventually(t, f.channel.IsConnected, 5*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		f.engine.Emit("remote-1", model.StatusReconnecting)
		select {
		case status := <-latest:
			return status == model.StatusReconnecting
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 100*time.Millisecond)

	assert.Zero(t, atomic.LoadInt32(&first))

	f.channel.mutex.Lock()
	assert.Len(t, f.channel.subscriptions, 1)
	f.channel.mutex.Unlock()
}

// stalledListener accepts TCP connections and never answers the handshake
func stalledListener(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mutex sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mutex.Lock()
			conns = append(conns, conn)
			mutex.Unlock()
		}
	}()

	t.Cleanup(func() {
		ln.Close()
		mutex.Lock()
		defer mutex.Unlock()
		for _, conn := range conns {
			conn.Close()
		}
	})
	return ln
}

func TestDispatchDoesNotWaitForHandshake(t *testing.T) {
	log := logger.NewLogger(io.Discard, "error")
	ln := stalledListener(t)

	channel := NewWebSocketChannel("ws://"+ln.Addr().String()+"/bridge", nil, log)
	tunnel := service.NewTunnel("t1", service.NewDispatcher(channel, "", log), log)

	begin := time.Now()
	call := tunnel.IsRunningAsync()
	other := tunnel.StopAsync()
	assert.False(t, channel.IsConnected())
	assert.Less(t, time.Since(begin), time.Second)

	channel.Close()
	for _, c := range []*service.Call{call, other} {
		_, err := c.Await(testContext(t))
		assert.Equal(t, model.Unexpected, model.CodeOf(err))
	}
}

func TestDispatchQueuedUntilConnected(t *testing.T) {
	log := logger.NewLogger(io.Discard, "error")
	engine := native.NewEngine(log)
	defer engine.Close()
	server := httptest.NewServer(NewServer(engine, log))
	defer server.Close()

	channel := NewWebSocketChannel("ws"+strings.TrimPrefix(server.URL, "http"), nil, log)
	defer channel.Close()
	tunnel := service.NewTunnel("queued", service.NewDispatcher(channel, "", log), log)

	statuses := make(chan model.TunnelStatus, 2)
	require.NoError(t, tunnel.OnStatusChange(func(status model.TunnelStatus) { statuses <- status }))

	ctx := testContext(t)
	require.NoError(t, tunnel.Start(ctx, &model.ServerConfig{Host: "10.0.0.1", Port: 8388, Password: "pw"}))
	running, err := tunnel.IsRunning(ctx)
	require.NoError(t, err)
	assert.True(t, running)
	assert.True(t, channel.IsConnected())
	assert.Equal(t, model.StatusConnected, <-statuses)
}

func TestQueuedRequestsFailWhenDialFails(t *testing.T) {
	log := logger.NewLogger(io.Discard, "error")
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	channel := NewWebSocketChannel("ws://"+addr+"/bridge", nil, log)
	defer channel.Close()
	tunnel := service.NewTunnel("t1", service.NewDispatcher(channel, "", log), log)

	_, err = tunnel.IsRunning(testContext(t))
	assert.Equal(t, model.Unexpected, model.CodeOf(err))
	assert.Error(t, channel.Connect())
}
