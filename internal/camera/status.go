package camera

import (
	"errors"
	"fmt"
)

// ConnectionStatus is the live reachability/auth state a device reports.
// It is queried synchronously before every interaction and never persisted.
type ConnectionStatus string

const (
	StatusOnline       ConnectionStatus = "online"
	StatusOffline      ConnectionStatus = "offline"
	StatusUnauthorized ConnectionStatus = "unauthorized"
	StatusUnreachable  ConnectionStatus = "unreachable"
)

var (
	// ErrDeviceOffline maps to 503 at the API boundary.
	ErrDeviceOffline = errors.New("device is offline")
	// ErrDeviceUnauthorized maps to 401 at the API boundary.
	ErrDeviceUnauthorized = errors.New("device rejected credentials")
	// ErrDeviceUnreachable maps to 502 at the API boundary.
	ErrDeviceUnreachable = errors.New("device is unreachable")
)

// ToError maps a non-online status to its error; online maps to nil. The
// mapping is a pure function independent of any web-framework type so the
// API boundary can translate it to a status code on its own terms.
func (s ConnectionStatus) ToError() error {
	switch s {
	case StatusOnline:
		return nil
	case StatusOffline:
		return ErrDeviceOffline
	case StatusUnauthorized:
		return ErrDeviceUnauthorized
	case StatusUnreachable:
		return ErrDeviceUnreachable
	default:
		return fmt.Errorf("unknown device status %q", string(s))
	}
}

// NetworkError wraps a transport-level failure reaching the device: timeout,
// connection refused, DNS. Distinct from DeviceError so the two get
// different user-visible messages. Never retried.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DeviceError reports that the device answered with an HTTP error status.
type DeviceError struct {
	Op         string
	StatusCode int
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device returned status %d during %s", e.StatusCode, e.Op)
}

// InvalidResponseError reports a malformed device payload. The fault is
// attributable to the external device, so the API boundary surfaces it as
// 424 rather than a generic 500.
type InvalidResponseError struct {
	Op  string
	Err error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid device response during %s: %v", e.Op, e.Err)
}

func (e *InvalidResponseError) Unwrap() error { return e.Err }
