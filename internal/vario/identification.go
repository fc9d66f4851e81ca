package vario

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/openvario/internal/device"
)

var (
	IdentificationServiceUUID = uuid.MustParse("38df4da7-94f3-44dc-83ad-4e10864fbd44")

	CommandUUID            = uuid.MustParse("520b42a8-ee29-46ec-9eff-24e732ca0cb5")
	IdentificationInfoUUID = uuid.MustParse("dea233cc-dabb-4b00-9046-f70a44c1ceda")
)

type identificationValue int

const (
	identificationCommand identificationValue = iota
	identificationInfo
)

var identificationBindings = []Binding[identificationValue]{
	{identificationCommand, CommandUUID},
	{identificationInfo, IdentificationInfoUUID},
}

// IdentificationInfo describes the device's firmware and hardware.
type IdentificationInfo struct {
	GattVersion               string `json:"gatt_version"`
	SoftwareVersion           string `json:"software_version"`
	SoftwareManufacturerName  string `json:"software_manufacturer"`
	HardwareVersion           string `json:"hardware_version"`
	HardwareManufacturerName  string `json:"hardware_manufacturer"`
	HardwareSerialNumber      string `json:"serial_number"`
	HardwareManufacturingDate string `json:"manufacturing_date"`
}

// identificationFields lists the record fields in command index order.
var identificationFields = []struct {
	name string
	set  func(*IdentificationInfo, string)
}{
	{"gatt_version", func(i *IdentificationInfo, s string) { i.GattVersion = s }},
	{"software_version", func(i *IdentificationInfo, s string) { i.SoftwareVersion = s }},
	{"software_manufacturer", func(i *IdentificationInfo, s string) { i.SoftwareManufacturerName = s }},
	{"hardware_version", func(i *IdentificationInfo, s string) { i.HardwareVersion = s }},
	{"hardware_manufacturer", func(i *IdentificationInfo, s string) { i.HardwareManufacturerName = s }},
	{"serial_number", func(i *IdentificationInfo, s string) { i.HardwareSerialNumber = s }},
	{"manufacturing_date", func(i *IdentificationInfo, s string) { i.HardwareManufacturingDate = s }},
}

// IdentificationState tracks the identification handshake.
type IdentificationState int

const (
	NotFetched IdentificationState = iota
	Fetching
	Cached
	Failed
)

func (s IdentificationState) String() string {
	switch s {
	case NotFetched:
		return "not_fetched"
	case Fetching:
		return "fetching"
	case Cached:
		return "cached"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("IdentificationState(%d)", int(s))
	}
}

// Identification reads the device identity through a command/response
// handshake: each field is selected by writing its index to the command
// characteristic and then reading the info characteristic.
type Identification struct {
	proxy  *Proxy[identificationValue]
	logger *logrus.Logger

	fetch sync.Mutex // serializes handshakes

	mu    sync.Mutex
	state IdentificationState
	info  IdentificationInfo
}

// NewIdentification binds an identification service to svc.
func NewIdentification(t device.Transport, svc *device.Service, logger *logrus.Logger) *Identification {
	if logger == nil {
		logger = logrus.New()
	}
	return &Identification{
		proxy:  NewProxy[identificationValue](t, svc, identificationBindings, nil, logger),
		logger: logger,
	}
}

// State returns the handshake state.
func (s *Identification) State() IdentificationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Identification) setState(state IdentificationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// Info returns the identification record, running the handshake unless it is
// cached. A failed handshake keeps nothing and is retried from the first field
// on the next call.
func (s *Identification) Info(ctx context.Context) (IdentificationInfo, error) {
	s.fetch.Lock()
	defer s.fetch.Unlock()

	s.mu.Lock()
	if s.state == Cached {
		info := s.info
		s.mu.Unlock()
		return info, nil
	}
	s.state = Fetching
	s.mu.Unlock()

	info, err := s.handshake(ctx)
	if err != nil {
		s.setState(Failed)
		s.logger.WithFields(logrus.Fields{
			"service_uuid": s.proxy.Service().UUID,
			"error":        err,
		}).Warn("Identification handshake failed")
		return IdentificationInfo{}, fmt.Errorf("%w: %w", ErrIdentificationFailed, err)
	}

	s.mu.Lock()
	s.info = info
	s.state = Cached
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"gatt_version":     info.GattVersion,
		"software_version": info.SoftwareVersion,
		"serial_number":    info.HardwareSerialNumber,
	}).Info("Device identified")
	return info, nil
}

func (s *Identification) handshake(ctx context.Context) (IdentificationInfo, error) {
	var info IdentificationInfo
	if err := s.proxy.InitMapping(ctx); err != nil {
		return info, err
	}
	for i, field := range identificationFields {
		if err := s.proxy.Write(ctx, identificationCommand, device.Uint8Value(uint8(i))); err != nil {
			return IdentificationInfo{}, fmt.Errorf("select %s: %w", field.name, err)
		}
		v, err := s.proxy.Read(ctx, identificationInfo)
		if err != nil {
			return IdentificationInfo{}, fmt.Errorf("read %s: %w", field.name, err)
		}
		field.set(&info, v.Text())
		s.logger.WithFields(logrus.Fields{
			"field": field.name,
			"value": v.Text(),
		}).Debug("Identification field read")
	}
	return info, nil
}
