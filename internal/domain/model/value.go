package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Native layers answer with loosely typed values: a Go stub hands over
// native types, a JSON transport hands over float64 or json.RawMessage.
// The helpers below normalize both.

// IntFromValue reads an integral value
func IntFromValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		if n < math.MinInt || n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint:
		return intFromUint(uint64(n))
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return intFromUint(uint64(n))
	case uint64:
		return intFromUint(n)
	case ErrorCode:
		return int(n), true
	case TunnelStatus:
		return int(n), true
	case float32:
		return intFromFloat(float64(n))
	case float64:
		return intFromFloat(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return IntFromValue(i)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	case json.RawMessage:
		var decoded interface{}
		if err := json.Unmarshal(n, &decoded); err != nil {
			return 0, false
		}
		return IntFromValue(decoded)
	case []byte:
		return IntFromValue(json.RawMessage(n))
	}
	return 0, false
}

func intFromUint(n uint64) (int, bool) {
	if n > math.MaxInt {
		return 0, false
	}
	return int(n), true
}

func intFromFloat(f float64) (int, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) || f < math.MinInt || f >= math.MaxInt {
		return 0, false
	}
	return int(f), true
}

// BoolFromValue reads a boolean-equivalent native value
func BoolFromValue(v interface{}) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, fmt.Errorf("not a boolean: %q", b)
		}
		return parsed, nil
	case json.RawMessage:
		var decoded interface{}
		if err := json.Unmarshal(b, &decoded); err != nil {
			return false, fmt.Errorf("failed to decode boolean: %v", err)
		}
		return BoolFromValue(decoded)
	case []byte:
		return BoolFromValue(json.RawMessage(b))
	}
	if n, ok := IntFromValue(v); ok {
		return n != 0, nil
	}
	return false, fmt.Errorf("not a boolean: %v (%T)", v, v)
}

// StatusFromValue reads a TunnelStatus emitted by the native layer
func StatusFromValue(v interface{}) (TunnelStatus, error) {
	n, ok := IntFromValue(v)
	if !ok {
		return 0, fmt.Errorf("not a tunnel status: %v (%T)", v, v)
	}
	status := TunnelStatus(n)
	if !status.Valid() {
		return 0, fmt.Errorf("unknown tunnel status: %d", n)
	}
	return status, nil
}
