package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haxorport/tunnel-bridge/internal/domain/model"
	"github.com/haxorport/tunnel-bridge/internal/infrastructure/logger"
	"github.com/haxorport/tunnel-bridge/internal/infrastructure/native"
	"github.com/haxorport/tunnel-bridge/internal/infrastructure/transport"
	"github.com/spf13/viper"
)

// loopback_native serves the in-memory native engine over WebSocket so a
// bridge in websocket mode can be exercised without a platform tunnel.
func main() {
	listenAddr := flag.String("listen", "", "Address to listen on (default: from config or 127.0.0.1:9090)")
	configPath := flag.String("config", "", "Path to configuration file")
	logLevel := flag.String("log-level", "info", "Logging level (debug, info, warn, error)")
	probeTimeout := flag.Duration("probe-timeout", 5*time.Second, "Timeout for reachability probes")
	flag.Parse()

	log := logger.NewLogger(os.Stdout, *logLevel)

	serviceName := model.DefaultServiceName
	addr := *listenAddr
	if *configPath == "" {
		*configPath = model.DefaultConfigPath()
	}

	// Fill the gaps from the bridge configuration
	v := viper.New()
	v.SetConfigFile(*configPath)
	if err := v.ReadInConfig(); err != nil {
		log.Debug("Not using configuration file %s: %v", *configPath, err)
	} else {
		if name := v.GetString("service_name"); name != "" {
			serviceName = name
		}
		if addr == "" && v.GetInt("control_port") != 0 {
			addr = fmt.Sprintf("127.0.0.1:%d", v.GetInt("control_port"))
		}
	}
	if addr == "" {
		addr = "127.0.0.1:9090"
	}

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	engine := native.NewEngine(log,
		native.WithServiceName(serviceName),
		native.WithProber(native.DialProber(*probeTimeout)),
		native.WithQuit(func() { stopCh <- syscall.SIGTERM }),
	)
	defer engine.Close()

	mux := http.NewServeMux()
	mux.Handle("/bridge", transport.NewServer(engine, log))
	server := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	log.Info("Loopback native host for %s listening on ws://%s/bridge", serviceName, addr)
	log.Info("Press Ctrl+C to stop")

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error: %v", err)
			os.Exit(1)
		}
	case sig := <-stopCh:
		log.Info("Received signal: %v", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("Shutdown failed: %v", err)
		}
	}
}
