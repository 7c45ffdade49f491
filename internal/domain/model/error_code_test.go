package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodeWireValues(t *testing.T) {
	expected := map[ErrorCode]int{
		NoError:                     0,
		Unexpected:                  1,
		VPNPermissionNotGranted:     2,
		InvalidServerCredentials:    3,
		UDPRelayNotEnabled:          4,
		ServerUnreachable:           5,
		VPNStartFailure:             6,
		IllegalServerConfiguration:  7,
		ShadowsocksStartFailure:     8,
		ConfigureSystemProxyFailure: 9,
		NoAdminPermissions:          10,
		UnsupportedRoutingTable:     11,
		SystemMisconfigured:         12,
	}

	require.Len(t, errorCodeNames, 13)
	for code, value := range expected {
		assert.Equal(t, value, int(code), code.String())
		assert.True(t, code.Valid())
	}
	assert.False(t, ErrorCode(13).Valid())
	assert.Equal(t, "ErrorCode(42)", ErrorCode(42).String())
}

func TestNewPluginErrorDefaultsToUnexpected(t *testing.T) {
	assert.Equal(t, Unexpected, NewPluginError(NoError).Code())
	assert.Equal(t, ServerUnreachable, NewPluginError(5).Code())
}

func TestPluginErrorMatching(t *testing.T) {
	err := fmt.Errorf("start failed: %w", NewPluginError(VPNPermissionNotGranted))

	assert.True(t, errors.Is(err, VPNPermissionNotGranted))
	assert.True(t, errors.Is(err, NewPluginError(VPNPermissionNotGranted)))
	assert.False(t, errors.Is(err, Unexpected))

	var pluginErr *PluginError
	require.True(t, errors.As(err, &pluginErr))
	assert.Equal(t, VPNPermissionNotGranted, pluginErr.Code())
	assert.Equal(t, VPNPermissionNotGranted, CodeOf(err))
	assert.Equal(t, NoError, CodeOf(nil))
	assert.Equal(t, Unexpected, CodeOf(errors.New("plain")))
}

func TestPluginErrorJSON(t *testing.T) {
	data, err := json.Marshal(NewPluginError(IllegalServerConfiguration))
	require.NoError(t, err)
	assert.JSONEq(t, `{"errorCode":7}`, string(data))
}

func TestCodeFromValue(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected ErrorCode
	}{
		{"int", 5, ServerUnreachable},
		{"float from JSON", float64(2), VPNPermissionNotGranted},
		{"json number", json.Number("12"), SystemMisconfigured},
		{"numeric string", "7", IllegalServerConfiguration},
		{"raw message", json.RawMessage("3"), InvalidServerCredentials},
		{"object", map[string]interface{}{"errorCode": float64(10)}, NoAdminPermissions},
		{"code", UDPRelayNotEnabled, UDPRelayNotEnabled},
		{"nil", nil, Unexpected},
		{"garbage", "boom", Unexpected},
		{"fraction", 2.5, Unexpected},
		{"out of range", 99, Unexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CodeFromValue(tt.value))
		})
	}
}

func TestParseErrorCode(t *testing.T) {
	code, err := ParseErrorCode("server_unreachable")
	require.NoError(t, err)
	assert.Equal(t, ServerUnreachable, code)

	code, err = ParseErrorCode("11")
	require.NoError(t, err)
	assert.Equal(t, UnsupportedRoutingTable, code)

	_, err = ParseErrorCode("13")
	assert.Error(t, err)
	_, err = ParseErrorCode("NOPE")
	assert.Error(t, err)
}
