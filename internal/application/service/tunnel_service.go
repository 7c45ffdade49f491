package service

import (
	"fmt"
	"sync"

	"github.com/haxorport/tunnel-bridge/internal/domain/model"
	"github.com/haxorport/tunnel-bridge/internal/domain/port"
)

// TunnelService resolves configured tunnels to handles
type TunnelService struct {
	dispatcher *Dispatcher
	config     *model.Config
	logger     port.Logger
	handles    map[string]*Tunnel
	mutex      sync.Mutex
}

// NewTunnelService creates a new TunnelService instance
func NewTunnelService(dispatcher *Dispatcher, config *model.Config, logger port.Logger) *TunnelService {
	return &TunnelService{
		dispatcher: dispatcher,
		config:     config,
		logger:     logger,
		handles:    make(map[string]*Tunnel),
	}
}

// Handle returns the handle for a tunnel id, creating it on first use
func (s *TunnelService) Handle(id string) *Tunnel {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if tunnel, ok := s.handles[id]; ok {
		return tunnel
	}
	tunnel := NewTunnel(id, s.dispatcher, s.logger)
	s.handles[id] = tunnel
	return tunnel
}

// Open returns the handle and entry of a configured tunnel
func (s *TunnelService) Open(name string) (*Tunnel, *model.TunnelEntry, error) {
	entry := s.config.GetTunnel(name)
	if entry == nil {
		return nil, nil, fmt.Errorf("tunnel %s not found in configuration", name)
	}
	if entry.ID == "" {
		return nil, nil, fmt.Errorf("tunnel %s has no id", name)
	}
	return s.Handle(entry.ID), entry, nil
}

// GetAllTunnels returns all configured tunnels
func (s *TunnelService) GetAllTunnels() []model.TunnelEntry {
	tunnels := make([]model.TunnelEntry, len(s.config.Tunnels))
	copy(tunnels, s.config.Tunnels)
	return tunnels
}
