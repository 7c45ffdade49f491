package service

import (
	"testing"

	"github.com/haxorport/tunnel-bridge/internal/domain/model"
	"github.com/haxorport/tunnel-bridge/internal/infrastructure/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigServiceSet(t *testing.T) {
	svc := NewConfigService(config.NewConfigRepository(config.WithFs(afero.NewMemMapFs())), &recordingLogger{})
	cfg := model.NewConfig()

	require.NoError(t, svc.Set(cfg, "connection_mode", "websocket"))
	require.NoError(t, svc.Set(cfg, "control_port", "7000"))
	require.NoError(t, svc.Set(cfg, "service_name", "OtherPlugin"))
	assert.Equal(t, model.ConnectionModeWebSocket, cfg.ConnectionMode)
	assert.Equal(t, 7000, cfg.ControlPort)
	assert.Equal(t, "OtherPlugin", cfg.ServiceName)

	assert.Error(t, svc.Set(cfg, "control_port", "12abc"))
	assert.Error(t, svc.Set(cfg, "connection_mode", "carrier-pigeon"))
	assert.Error(t, svc.Set(cfg, "nope", "x"))
}

func TestConfigServiceRoundTrip(t *testing.T) {
	svc := NewConfigService(config.NewConfigRepository(config.WithFs(afero.NewMemMapFs())), &recordingLogger{})
	cfg := model.NewConfig()

	entry := svc.AddTunnel(cfg, model.TunnelEntry{Name: "home", Server: model.ServerConfig{Host: "h", Port: 1}})
	assert.NotEmpty(t, entry.ID)

	require.NoError(t, svc.SaveConfig(cfg, "/cfg/config.yaml"))
	loaded, err := svc.LoadConfig("/cfg/config.yaml")
	require.NoError(t, err)
	require.NotNil(t, svc.GetTunnel(loaded, "home"))
	assert.Equal(t, entry.ID, svc.GetTunnel(loaded, "home").ID)
	assert.True(t, svc.RemoveTunnel(loaded, "home"))
}
