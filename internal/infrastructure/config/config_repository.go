package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/haxorport/tunnel-bridge/internal/domain/model"
	"github.com/haxorport/tunnel-bridge/internal/domain/port"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Option configures a ConfigRepository
type Option func(*ConfigRepository)

// WithFs sets the filesystem used to read and write configuration
func WithFs(fs afero.Fs) Option {
	return func(r *ConfigRepository) {
		r.fs = fs
	}
}

// ConfigRepository is an implementation of port.ConfigRepository
type ConfigRepository struct {
	fs afero.Fs
}

// NewConfigRepository creates a new ConfigRepository instance
func NewConfigRepository(opts ...Option) *ConfigRepository {
	r := &ConfigRepository{fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ConfigRepository) newViper(configPath string) *viper.Viper {
	v := viper.New()
	v.SetFs(r.fs)
	v.SetConfigFile(configPath)
	if filepath.Ext(configPath) == "" {
		v.SetConfigType("yaml")
	}
	return v
}

// Load loads configuration from file
func (r *ConfigRepository) Load(configPath string) (*model.Config, error) {
	config := model.NewConfig()

	if configPath == "" {
		var err error
		configPath, err = r.GetDefaultPath()
		if err != nil {
			return nil, err
		}
	}

	exists, err := afero.Exists(r.fs, configPath)
	if err != nil {
		return nil, fmt.Errorf("error checking config file: %w", err)
	}
	if !exists {
		return config, nil
	}

	v := r.newViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Keys missing from the file keep their defaults
	if v.IsSet("server_address") {
		config.ServerAddress = v.GetString("server_address")
	}
	if v.IsSet("control_port") {
		config.ControlPort = v.GetInt("control_port")
	}
	if v.IsSet("connection_mode") {
		config.ConnectionMode = model.ConnectionMode(v.GetString("connection_mode"))
	}
	if v.IsSet("service_name") {
		config.ServiceName = v.GetString("service_name")
	}
	if v.IsSet("log_level") {
		config.LogLevel = model.LogLevel(v.GetString("log_level"))
	}
	config.TLSEnabled = v.GetBool("tls_enabled")
	config.TLSCert = v.GetString("tls_cert")
	config.TLSKey = v.GetString("tls_key")
	config.LogFile = v.GetString("log_file")
	config.ErrorReportingKey = v.GetString("error_reporting_key")

	var tunnels []model.TunnelEntry
	if err := v.UnmarshalKey("tunnels", &tunnels); err != nil {
		return nil, fmt.Errorf("error parsing tunnel configuration: %w", err)
	}
	if tunnels != nil {
		config.Tunnels = tunnels
	}

	return config, nil
}

// Save saves configuration to file
func (r *ConfigRepository) Save(config *model.Config, configPath string) error {
	if configPath == "" {
		var err error
		configPath, err = r.GetDefaultPath()
		if err != nil {
			return err
		}
	}

	if err := r.fs.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	v := r.newViper(configPath)
	v.Set("server_address", config.ServerAddress)
	v.Set("control_port", config.ControlPort)
	v.Set("connection_mode", string(config.ConnectionMode))
	v.Set("service_name", config.ServiceName)
	v.Set("tls_enabled", config.TLSEnabled)
	v.Set("tls_cert", config.TLSCert)
	v.Set("tls_key", config.TLSKey)
	v.Set("log_level", string(config.LogLevel))
	v.Set("log_file", config.LogFile)
	v.Set("error_reporting_key", config.ErrorReportingKey)
	v.Set("tunnels", config.Tunnels)

	if err := v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("error saving configuration: %w", err)
	}

	return nil
}

// GetDefaultPath returns the default path for configuration file
func (r *ConfigRepository) GetDefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error getting home directory: %w", err)
	}

	return filepath.Join(homeDir, ".tunnel-bridge", "config.yaml"), nil
}

// Ensure ConfigRepository implements port.ConfigRepository
var _ port.ConfigRepository = (*ConfigRepository)(nil)
