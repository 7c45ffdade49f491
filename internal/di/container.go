package di

import (
	"fmt"
	"os"

	"github.com/haxorport/tunnel-bridge/internal/application/service"
	"github.com/haxorport/tunnel-bridge/internal/domain/model"
	"github.com/haxorport/tunnel-bridge/internal/domain/port"
	"github.com/haxorport/tunnel-bridge/internal/infrastructure/config"
	"github.com/haxorport/tunnel-bridge/internal/infrastructure/logger"
	"github.com/haxorport/tunnel-bridge/internal/infrastructure/native"
	"github.com/haxorport/tunnel-bridge/internal/infrastructure/transport"
)

// Container is a container for dependency injection
type Container struct {
	// Logger
	Logger *logger.Logger

	// Repositories
	ConfigRepository *config.ConfigRepository

	// Channel to the native layer
	Channel port.Channel

	// Services
	ConfigService *service.ConfigService
	Dispatcher    *service.Dispatcher
	TunnelService *service.TunnelService
	ErrorReporter *service.ErrorReporter
	Application   *service.Application

	// Config
	Config *model.Config

	engine    *native.Engine
	websocket *transport.WebSocketChannel
}

// NewContainer creates a new Container instance
func NewContainer() *Container {
	return &Container{}
}

// Initialize initializes the container
func (c *Container) Initialize(configPath string) error {
	c.Logger = logger.NewLogger(os.Stdout, "info")

	c.ConfigRepository = config.NewConfigRepository()
	c.ConfigService = service.NewConfigService(c.ConfigRepository, c.Logger)

	var err error
	c.Config, err = c.ConfigService.LoadConfig(configPath)
	if err != nil {
		return err
	}

	c.Logger.SetLevel(string(c.Config.LogLevel))

	// Log to file as well as to the terminal
	if c.Config.LogFile != "" {
		fileLogger, err := logger.NewTeeLogger(c.Config.LogFile, string(c.Config.LogLevel), os.Stdout)
		if err != nil {
			c.Logger.Error("Failed to create file logger: %v", err)
		} else {
			c.Logger = fileLogger
		}
	}

	switch c.Config.ConnectionMode {
	case model.ConnectionModeWebSocket:
		tlsConfig, err := transport.TLSConfig(c.Config)
		if err != nil {
			return err
		}
		c.websocket = transport.NewWebSocketChannel(transport.ServerURL(c.Config), tlsConfig, c.Logger)
		c.Channel = c.websocket
	case model.ConnectionModeLoopback, "":
		c.engine = native.NewEngine(c.Logger,
			native.WithServiceName(serviceName(c.Config)),
			native.WithQuit(func() { os.Exit(0) }),
		)
		c.Channel = c.engine
	default:
		return fmt.Errorf("connection mode not supported: %s", c.Config.ConnectionMode)
	}

	c.wireServices()
	return nil
}

func (c *Container) wireServices() {
	c.Dispatcher = service.NewDispatcher(c.Channel, serviceName(c.Config), c.Logger)
	c.TunnelService = service.NewTunnelService(c.Dispatcher, c.Config, c.Logger)
	c.ErrorReporter = service.NewErrorReporter(c.Dispatcher, c.Logger)
	c.Application = service.NewApplication(c.Dispatcher)
}

// KeepAlive keeps a remote channel connected for long running commands
func (c *Container) KeepAlive() {
	if c.websocket != nil {
		c.websocket.RunWithReconnect()
	}
}

// Close closes all resources
func (c *Container) Close() {
	if c.websocket != nil {
		c.websocket.Close()
	}
	if c.engine != nil {
		c.engine.Close()
	}
	if c.Logger != nil {
		c.Logger.Close()
	}
}

func serviceName(cfg *model.Config) string {
	if cfg.ServiceName == "" {
		return model.DefaultServiceName
	}
	return cfg.ServiceName
}
