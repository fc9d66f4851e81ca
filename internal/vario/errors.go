package vario

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNotOpenVario is returned by Initialize when the peer has no identification service.
	ErrNotOpenVario = errors.New("not an OpenVario device: identification service not found")

	// ErrServiceUnavailable is returned by accessors for services the device does not expose.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrIdentificationFailed is returned by Initialize when the identification handshake fails.
	ErrIdentificationFailed = errors.New("identification handshake failed")
)

// MissingCharacteristicError reports the required characteristics a service lacks.
type MissingCharacteristicError struct {
	Service uuid.UUID
	Missing []uuid.UUID
}

func (e *MissingCharacteristicError) Error() string {
	ids := make([]string, len(e.Missing))
	for i, id := range e.Missing {
		ids[i] = id.String()
	}
	return fmt.Sprintf("service %s is missing characteristics: %s", e.Service, strings.Join(ids, ", "))
}

// Is makes every MissingCharacteristicError match ErrServiceUnavailable.
func (e *MissingCharacteristicError) Is(target error) bool {
	return target == ErrServiceUnavailable
}

// MissingServicesError reports the protocol services absent in strict mode.
type MissingServicesError struct {
	Missing []string
}

func (e *MissingServicesError) Error() string {
	return fmt.Sprintf("missing services: %s", strings.Join(e.Missing, ", "))
}

// Is makes every MissingServicesError match ErrServiceUnavailable.
func (e *MissingServicesError) Is(target error) bool {
	return target == ErrServiceUnavailable
}
