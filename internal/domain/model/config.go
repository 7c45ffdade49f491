package model

import (
	"os"
	"path/filepath"
)

// LogLevel defines logging levels
type LogLevel string

const (
	// LogLevelDebug is the level for debug messages
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is the level for informational messages
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn is the level for warning messages
	LogLevelWarn LogLevel = "warn"
	// LogLevelError is the level for error messages
	LogLevelError LogLevel = "error"
)

// ConnectionMode defines how the bridge reaches the native layer
type ConnectionMode string

const (
	// ConnectionModeWebSocket talks to a native host over WebSocket
	ConnectionModeWebSocket ConnectionMode = "websocket"
	// ConnectionModeLoopback uses the in-process loopback engine
	ConnectionModeLoopback ConnectionMode = "loopback"
)

// TunnelEntry binds a tunnel id to the server it should connect to
type TunnelEntry struct {
	// Name is the human readable name used on the command line
	Name string `mapstructure:"name" yaml:"name"`
	// ID is the opaque tunnel id sent to the native layer
	ID string `mapstructure:"id" yaml:"id"`
	// Server is the server configuration passed to start
	Server ServerConfig `mapstructure:"server" yaml:"server"`
}

// Config is the configuration structure for the bridge
type Config struct {
	// ServerAddress is the address of the native host (websocket mode)
	ServerAddress string
	// ControlPort is the port of the native host (websocket mode)
	ControlPort int
	// ConnectionMode selects the channel to the native layer
	ConnectionMode ConnectionMode
	// ServiceName is the native target that receives commands
	ServiceName string
	// TLSEnabled is a flag to enable TLS
	TLSEnabled bool
	// TLSCert is the path to TLS certificate file
	TLSCert string
	// TLSKey is the path to TLS key file
	TLSKey string
	// LogLevel is the logging level (debug, info, warn, error)
	LogLevel LogLevel
	// LogFile is the path to log file (empty for stdout)
	LogFile string
	// ErrorReportingKey is the api key handed to initializeErrorReporting
	ErrorReportingKey string
	// Tunnels is the list of known tunnels
	Tunnels []TunnelEntry
}

// NewConfig creates a new Config instance with default values
func NewConfig() *Config {
	return &Config{
		ServerAddress:  "127.0.0.1",
		ControlPort:    9090,
		ConnectionMode: ConnectionModeLoopback,
		ServiceName:    DefaultServiceName,
		TLSEnabled:     false,
		LogLevel:       LogLevelWarn,
		LogFile:        "",
		Tunnels:        []TunnelEntry{},
	}
}

// AddTunnel adds a tunnel to the configuration, replacing one with the same name
func (c *Config) AddTunnel(tunnel TunnelEntry) {
	for i := range c.Tunnels {
		if c.Tunnels[i].Name == tunnel.Name {
			c.Tunnels[i] = tunnel
			return
		}
	}
	c.Tunnels = append(c.Tunnels, tunnel)
}

// RemoveTunnel removes a tunnel from configuration by name
func (c *Config) RemoveTunnel(name string) bool {
	for i, tunnel := range c.Tunnels {
		if tunnel.Name == name {
			c.Tunnels = append(c.Tunnels[:i], c.Tunnels[i+1:]...)
			return true
		}
	}
	return false
}

// GetTunnel returns a tunnel by name
func (c *Config) GetTunnel(name string) *TunnelEntry {
	for i := range c.Tunnels {
		if c.Tunnels[i].Name == name {
			return &c.Tunnels[i]
		}
	}
	return nil
}

// DefaultConfigPath returns the path to the configuration file
func DefaultConfigPath() string {
	configDir := "/etc/tunnel-bridge"

	// If not root, use home directory
	if os.Getuid() != 0 {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			configDir = filepath.Join(homeDir, ".tunnel-bridge")
		}
	}

	return filepath.Join(configDir, "config.yaml")
}
