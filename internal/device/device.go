package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// NotFoundError represents an error when a GATT attribute is not found
type NotFoundError struct {
	Resource string      // "service", "characteristic", "descriptor"
	UUIDs    []uuid.UUID // One or more UUIDs (e.g., [serviceUUID] or [serviceUUID, charUUID])
}

func (e *NotFoundError) Error() string {
	if len(e.UUIDs) == 0 {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	if len(e.UUIDs) == 1 {
		return fmt.Sprintf("%s %q not found", e.Resource, e.UUIDs[0])
	}
	parentResource := "service"
	if e.Resource == "descriptor" {
		parentResource = "characteristic"
	}
	return fmt.Sprintf("%s %q not found in %s %q", e.Resource, e.UUIDs[len(e.UUIDs)-1], parentResource, e.UUIDs[0])
}

// ConnectionState represents the specific kind of connection state failure
type ConnectionState string

const (
	NotConnected     ConnectionState = "not_connected"
	AlreadyConnected ConnectionState = "already_connected"
	NotInitialized   ConnectionState = "not_initialized"
)

// ConnectionError represents any connection-related problem
type ConnectionError struct {
	State ConnectionState
	Msg   string
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.State)
	}
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare ConnectionError values by State
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

// Predefined sentinel errors for connection states
var (
	ErrNotConnected     = &ConnectionError{State: NotConnected}
	ErrAlreadyConnected = &ConnectionError{State: AlreadyConnected}
	ErrNotInitialized   = &ConnectionError{State: NotInitialized}
)

// Operation errors
var (
	ErrTimeout      = errors.New("timeout")
	ErrUnsupported  = errors.New("unsupported")
	ErrBluetoothOff = errors.New("bluetooth is turned off")

	// ErrCommunication is matched by every CommunicationError.
	ErrCommunication = errors.New("communication failure")

	// ErrNotifyUnsupported is returned when a characteristic supports neither notify nor indicate.
	ErrNotifyUnsupported = fmt.Errorf("notifications: %w", ErrUnsupported)

	// ErrAlreadyRegistered is returned when a listener is already attached to a characteristic.
	ErrAlreadyRegistered = errors.New("notification already registered")

	// ErrNotRegistered is returned when unregistering a characteristic that has no listener.
	ErrNotRegistered = errors.New("notification not registered")
)

// CommunicationError wraps a failed exchange with the peer device.
type CommunicationError struct {
	Op   string    // "read", "write", "discover-services", ...
	UUID uuid.UUID // attribute the operation targeted, uuid.Nil for device-level operations
	Err  error
}

func (e *CommunicationError) Error() string {
	if e.UUID == uuid.Nil {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Op, e.UUID, e.Err)
}

func (e *CommunicationError) Unwrap() error { return e.Err }

// Is allows errors.Is(err, ErrCommunication).
func (e *CommunicationError) Is(target error) bool {
	return target == ErrCommunication
}

// ScanningDevice represents a BLE adapter capable of scanning for advertisements
type ScanningDevice interface {
	Scan(ctx context.Context, allowDup bool, handler func(Advertisement)) error
}

// Advertisement is the subset of an advertising packet the discovery layer consumes.
type Advertisement interface {
	LocalName() string
	Services() []uuid.UUID
	TxPowerLevel() int
	Connectable() bool
	RSSI() int
	Addr() string
}
