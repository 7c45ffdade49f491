package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrorCode classifies a tunnel operation failure.
// The values are part of the wire contract with every native implementation
// and must never be renumbered.
type ErrorCode int

const (
	// NoError signals success and is never carried by a PluginError
	NoError ErrorCode = 0
	// Unexpected is the fallback for unclassified failures
	Unexpected ErrorCode = 1
	// VPNPermissionNotGranted means the user refused the VPN permission prompt
	VPNPermissionNotGranted ErrorCode = 2
	// InvalidServerCredentials means the server rejected the credentials
	InvalidServerCredentials ErrorCode = 3
	// UDPRelayNotEnabled means the server does not relay UDP
	UDPRelayNotEnabled ErrorCode = 4
	// ServerUnreachable means the server could not be reached
	ServerUnreachable ErrorCode = 5
	// VPNStartFailure means the VPN interface could not be brought up
	VPNStartFailure ErrorCode = 6
	// IllegalServerConfiguration means the server configuration is missing or malformed
	IllegalServerConfiguration ErrorCode = 7
	// ShadowsocksStartFailure means the proxy process failed to start
	ShadowsocksStartFailure ErrorCode = 8
	// ConfigureSystemProxyFailure means the system proxy could not be configured
	ConfigureSystemProxyFailure ErrorCode = 9
	// NoAdminPermissions means the operation needs elevated privileges
	NoAdminPermissions ErrorCode = 10
	// UnsupportedRoutingTable means the routing table could not be managed
	UnsupportedRoutingTable ErrorCode = 11
	// SystemMisconfigured means the host system is in an unusable state
	SystemMisconfigured ErrorCode = 12
)

var errorCodeNames = map[ErrorCode]string{
	NoError:                     "NO_ERROR",
	Unexpected:                  "UNEXPECTED",
	VPNPermissionNotGranted:     "VPN_PERMISSION_NOT_GRANTED",
	InvalidServerCredentials:    "INVALID_SERVER_CREDENTIALS",
	UDPRelayNotEnabled:          "UDP_RELAY_NOT_ENABLED",
	ServerUnreachable:           "SERVER_UNREACHABLE",
	VPNStartFailure:             "VPN_START_FAILURE",
	IllegalServerConfiguration:  "ILLEGAL_SERVER_CONFIGURATION",
	ShadowsocksStartFailure:     "SHADOWSOCKS_START_FAILURE",
	ConfigureSystemProxyFailure: "CONFIGURE_SYSTEM_PROXY_FAILURE",
	NoAdminPermissions:          "NO_ADMIN_PERMISSIONS",
	UnsupportedRoutingTable:     "UNSUPPORTED_ROUTING_TABLE",
	SystemMisconfigured:         "SYSTEM_MISCONFIGURED",
}

// String returns the wire name of the code
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// Valid reports whether the code is part of the enumeration
func (c ErrorCode) Valid() bool {
	_, ok := errorCodeNames[c]
	return ok
}

// Error lets a bare code be used as a sentinel with errors.Is
func (c ErrorCode) Error() string {
	return c.String()
}

// ParseErrorCode converts a wire name (case-insensitive) or a decimal value to an ErrorCode
func ParseErrorCode(s string) (ErrorCode, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		code := ErrorCode(n)
		if !code.Valid() {
			return Unexpected, fmt.Errorf("unknown error code: %d", n)
		}
		return code, nil
	}
	for code, name := range errorCodeNames {
		if strings.EqualFold(name, s) {
			return code, nil
		}
	}
	return Unexpected, fmt.Errorf("unknown error code: %s", s)
}

// PluginError is the only error type that crosses the bridge.
// It carries exactly one ErrorCode.
type PluginError struct {
	code ErrorCode
}

// NewPluginError wraps code. A zero code becomes Unexpected, since
// NoError never describes a failure.
func NewPluginError(code ErrorCode) *PluginError {
	if code == NoError {
		code = Unexpected
	}
	return &PluginError{code: code}
}

// Code returns the wrapped error code
func (e *PluginError) Code() ErrorCode {
	return e.code
}

// Error implements error
func (e *PluginError) Error() string {
	return fmt.Sprintf("plugin error %d (%s)", int(e.code), e.code)
}

// Is matches a bare ErrorCode target or another PluginError with the same code
func (e *PluginError) Is(target error) bool {
	switch t := target.(type) {
	case ErrorCode:
		return e.code == t
	case *PluginError:
		return t != nil && e.code == t.code
	}
	return false
}

// MarshalJSON encodes the error the way the native layer reports it
func (e *PluginError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ErrorCode ErrorCode `json:"errorCode"`
	}{e.code})
}

// CodeOf extracts the ErrorCode from err. It returns NoError for nil and
// Unexpected for errors that are not PluginErrors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return NoError
	}
	var pluginErr *PluginError
	if errors.As(err, &pluginErr) {
		return pluginErr.Code()
	}
	return Unexpected
}

// CodeFromValue converts a raw native error payload into an ErrorCode.
// Anything that cannot be read as a number in the enumeration is Unexpected.
func CodeFromValue(v interface{}) ErrorCode {
	n, ok := IntFromValue(v)
	if !ok {
		if m, isMap := v.(map[string]interface{}); isMap {
			if inner, found := m["errorCode"]; found {
				return CodeFromValue(inner)
			}
		}
		return Unexpected
	}
	code := ErrorCode(n)
	if !code.Valid() {
		return Unexpected
	}
	return code
}
