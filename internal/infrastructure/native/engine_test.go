package native

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/haxorport/tunnel-bridge/internal/domain/model"
	"github.com/haxorport/tunnel-bridge/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	value interface{}
	err   bool
}

// exec runs one request command and waits for its single answer
func exec(t *testing.T, e *Engine, action string, args ...interface{}) result {
	t.Helper()
	ch := make(chan result, 2)
	e.Exec(model.DefaultServiceName, model.NewCommand(action, args...),
		func(v interface{}) { ch <- result{value: v} },
		func(v interface{}) { ch <- result{value: v, err: true} },
	)
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatalf("%s did not answer", action)
		return result{}
	}
}

func newTestEngine(opts ...Option) *Engine {
	return NewEngine(logger.NewLogger(io.Discard, "error"), opts...)
}

func validConfig() *model.ServerConfig {
	return &model.ServerConfig{Host: "127.0.0.1", Port: 8388, Password: "secret"}
}

func TestEngineStartStop(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	r := exec(t, e, model.ActionStart, "t1", validConfig())
	require.False(t, r.err)

	assert.Equal(t, true, exec(t, e, model.ActionIsRunning, "t1").value)
	assert.Equal(t, false, exec(t, e, model.ActionIsRunning, "t2").value)

	require.False(t, exec(t, e, model.ActionStop, "t1").err)
	assert.Equal(t, false, exec(t, e, model.ActionIsRunning, "t1").value)

	// stop on a stopped tunnel succeeds
	assert.False(t, exec(t, e, model.ActionStop, "t1").err)
}

func TestEngineStartValidation(t *testing.T) {
	e := newTestEngine(WithStartCheck(func(id string, config *model.ServerConfig) model.ErrorCode {
		if id == "denied" {
			return model.VPNPermissionNotGranted
		}
		return model.NoError
	}))
	defer e.Close()

	tests := []struct {
		name string
		args []interface{}
		code model.ErrorCode
	}{
		{"missing config", []interface{}{"t1"}, model.IllegalServerConfiguration},
		{"missing host", []interface{}{"t1", &model.ServerConfig{Port: 1, Password: "x"}}, model.IllegalServerConfiguration},
		{"missing password", []interface{}{"t1", &model.ServerConfig{Host: "h", Port: 1}}, model.InvalidServerCredentials},
		{"vetoed", []interface{}{"denied", validConfig()}, model.VPNPermissionNotGranted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := exec(t, e, model.ActionStart, tt.args...)
			require.True(t, r.err)
			assert.Equal(t, tt.code, r.value)
		})
	}
}

func TestEngineAcceptsDecodedJSONConfig(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	config := map[string]interface{}{"host": "10.0.0.1", "port": float64(443), "password": "pw"}
	require.False(t, exec(t, e, model.ActionStart, "t1", config).err)
	assert.Equal(t, true, exec(t, e, model.ActionIsRunning, "t1").value)
}

func TestEngineIsReachable(t *testing.T) {
	var probed string
	e := newTestEngine(WithProber(func(ctx context.Context, host string, port int) bool {
		probed = net.JoinHostPort(host, "x")
		return port == 443
	}))
	defer e.Close()

	assert.Equal(t, true, exec(t, e, model.ActionIsReachable, "t1", "example.com", 443).value)
	assert.Equal(t, "example.com:x", probed)
	assert.Equal(t, false, exec(t, e, model.ActionIsReachable, "t1", "example.com", float64(80)).value)

	r := exec(t, e, model.ActionIsReachable, "t1", "example.com")
	assert.True(t, r.err)
	assert.Equal(t, model.IllegalServerConfiguration, r.value)
}

func TestDialProber(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port

	probe := DialProber(time.Second)
	assert.True(t, probe(context.Background(), "127.0.0.1", port))

	listener.Close()
	assert.False(t, probe(context.Background(), "127.0.0.1", port))
}

func TestEngineStatusSubscription(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	first := make(chan interface{}, 8)
	second := make(chan interface{}, 8)
	subscribe := func(ch chan interface{}) {
		e.Exec(model.DefaultServiceName, model.NewCommand(model.ActionOnStatusChange, "t1"),
			func(v interface{}) { ch <- v },
			func(v interface{}) { t.Errorf("unexpected error %v", v) },
		)
	}

	subscribe(first)
	require.False(t, exec(t, e, model.ActionStart, "t1", validConfig()).err)
	assert.Equal(t, model.StatusConnected, <-first)

	// Registering again replaces the first listener
	subscribe(second)
	e.Emit("t1", model.StatusReconnecting)
	assert.Equal(t, model.StatusReconnecting, <-second)

	require.False(t, exec(t, e, model.ActionStop, "t1").err)
	assert.Equal(t, model.StatusDisconnected, <-second)

	select {
	case v := <-first:
		t.Fatalf("replaced listener received %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEngineErrorReporting(t *testing.T) {
	e := newTestEngine()
	defer e.Close()

	assert.True(t, exec(t, e, model.ActionReportEvents, "batch-1").err)
	assert.True(t, exec(t, e, model.ActionInitializeErrorReporting, "").err)

	require.False(t, exec(t, e, model.ActionInitializeErrorReporting, "key").err)
	require.False(t, exec(t, e, model.ActionReportEvents, "batch-1").err)
	assert.Equal(t, []string{"batch-1"}, e.Reported())
}

func TestEngineQuitAndUnknownCommands(t *testing.T) {
	quit := make(chan struct{}, 1)
	e := newTestEngine(WithQuit(func() { quit <- struct{}{} }), WithServiceName("TestPlugin"))
	defer e.Close()

	e.Exec("TestPlugin", model.NewCommand(model.ActionQuitApplication), nil, nil)
	select {
	case <-quit:
	case <-time.After(time.Second):
		t.Fatal("quit hook not invoked")
	}

	errs := make(chan interface{}, 2)
	onError := func(v interface{}) { errs <- v }
	e.Exec("OtherPlugin", model.NewCommand(model.ActionIsRunning, "t1"), nil, onError)
	e.Exec("TestPlugin", model.NewCommand("reboot"), nil, onError)
	assert.Equal(t, model.Unexpected, <-errs)
	assert.Equal(t, model.Unexpected, <-errs)
}
