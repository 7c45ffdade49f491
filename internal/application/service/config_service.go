package service

import (
	"fmt"
	"strconv"

	"github.com/haxorport/tunnel-bridge/internal/domain/model"
	"github.com/haxorport/tunnel-bridge/internal/domain/port"
)

// ConfigService is a service for managing configuration
type ConfigService struct {
	configRepo port.ConfigRepository
	logger     port.Logger
}

// NewConfigService creates a new ConfigService instance
func NewConfigService(configRepo port.ConfigRepository, logger port.Logger) *ConfigService {
	return &ConfigService{
		configRepo: configRepo,
		logger:     logger,
	}
}

// LoadConfig loads configuration from a file
func (s *ConfigService) LoadConfig(configPath string) (*model.Config, error) {
	// If configPath is empty, use the default path
	if configPath == "" {
		var err error
		configPath, err = s.configRepo.GetDefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get default path: %w", err)
		}
	}

	config, err := s.configRepo.Load(configPath)
	if err != nil {
		s.logger.Warn("Failed to load configuration from %s: %v", configPath, err)
		// Return default configuration if loading fails
		return model.NewConfig(), nil
	}

	s.logger.Info("Configuration loaded from %s", configPath)

	return config, nil
}

// SaveConfig saves configuration to a file
func (s *ConfigService) SaveConfig(config *model.Config, configPath string) error {
	if configPath == "" {
		var err error
		configPath, err = s.configRepo.GetDefaultPath()
		if err != nil {
			return fmt.Errorf("failed to get default path: %w", err)
		}
	}

	if err := s.configRepo.Save(config, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	s.logger.Info("Configuration saved to %s", configPath)

	return nil
}

// Set updates a configuration value by its key
func (s *ConfigService) Set(config *model.Config, key string, value string) error {
	switch key {
	case "server_address":
		config.ServerAddress = value
	case "control_port":
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 {
			return fmt.Errorf("port must be a positive number: %s", value)
		}
		config.ControlPort = port
	case "connection_mode":
		mode := model.ConnectionMode(value)
		if mode != model.ConnectionModeWebSocket && mode != model.ConnectionModeLoopback {
			return fmt.Errorf("connection mode not supported: %s", value)
		}
		config.ConnectionMode = mode
	case "service_name":
		config.ServiceName = value
	case "log_level":
		config.LogLevel = model.LogLevel(value)
	case "log_file":
		config.LogFile = value
	case "error_reporting_key":
		config.ErrorReportingKey = value
	default:
		return fmt.Errorf("invalid configuration key: %s", key)
	}
	return nil
}

// AddTunnel adds a tunnel to the configuration
func (s *ConfigService) AddTunnel(config *model.Config, tunnel model.TunnelEntry) model.TunnelEntry {
	if tunnel.ID == "" {
		tunnel.ID = NewTunnelID()
	}
	config.AddTunnel(tunnel)
	return tunnel
}

// RemoveTunnel removes a tunnel from the configuration
func (s *ConfigService) RemoveTunnel(config *model.Config, name string) bool {
	return config.RemoveTunnel(name)
}

// GetTunnel returns a tunnel from the configuration
func (s *ConfigService) GetTunnel(config *model.Config, name string) *model.TunnelEntry {
	return config.GetTunnel(name)
}
