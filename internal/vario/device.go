package vario

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/srg/openvario/internal/device"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Device is an OpenVario peer: its services discovered, identified, and
// wrapped in typed proxies.
type Device struct {
	transport device.Transport
	opts      Options
	logger    *logrus.Logger

	mu             sync.Mutex
	initialized    bool
	services       *orderedmap.OrderedMap[uuid.UUID, *device.Service]
	info           IdentificationInfo
	identification *Identification
	altimeter      *Altimeter
	barometer      *Barometer
	navigation     *Navigation
	variometer     *Variometer
}

// NewDevice wraps a connected transport. Call Initialize before using any service.
func NewDevice(t device.Transport, opts Options, logger *logrus.Logger) *Device {
	if logger == nil {
		logger = logrus.New()
	}
	defaults.SetDefaults(&opts)
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}
	return &Device{
		transport: t,
		opts:      opts,
		logger:    logger,
	}
}

// Initialize discovers the device's services, runs the identification
// handshake and builds a proxy for every protocol service present.
//
// It fails with ErrNotOpenVario when the identification service is absent.
// In strict mode it also fails with *MissingServicesError when any of the
// altimeter, barometer, navigation or variometer services is absent. A
// failed Initialize leaves the device uninitialized and may be retried.
func (d *Device) Initialize(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return nil
	}

	discovered, err := d.transport.DiscoverServices(ctx)
	if err != nil {
		return fmt.Errorf("failed to discover services: %w", err)
	}
	services := orderedmap.New[uuid.UUID, *device.Service]()
	for _, svc := range discovered {
		services.Set(svc.UUID, svc)
	}
	d.logger.WithField("services", services.Len()).Debug("Services discovered")

	idSvc, ok := services.Get(IdentificationServiceUUID)
	if !ok {
		return ErrNotOpenVario
	}
	identification := NewIdentification(d.transport, idSvc, d.logger)
	info, err := identification.Info(ctx)
	if err != nil {
		return err
	}

	var missing []string
	lookup := func(name string, id uuid.UUID) *device.Service {
		svc, ok := services.Get(id)
		if !ok {
			missing = append(missing, name)
			return nil
		}
		return svc
	}
	altSvc := lookup("altimeter", AltimeterServiceUUID)
	baroSvc := lookup("barometer", BarometerServiceUUID)
	navSvc := lookup("navigation", NavigationServiceUUID)
	varioSvc := lookup("variometer", VariometerServiceUUID)

	if len(missing) > 0 {
		if !d.opts.AllowMissingServices {
			return &MissingServicesError{Missing: missing}
		}
		d.logger.WithField("missing", missing).Warn("Device lacks some services")
	}

	d.services = services
	d.info = info
	d.identification = identification
	if altSvc != nil {
		d.altimeter = NewAltimeter(d.transport, altSvc, d.opts, d.logger)
	}
	if baroSvc != nil {
		d.barometer = NewBarometer(d.transport, baroSvc, d.opts, d.logger)
	}
	if navSvc != nil {
		d.navigation = NewNavigation(d.transport, navSvc, d.opts, d.logger)
	}
	if varioSvc != nil {
		d.variometer = NewVariometer(d.transport, varioSvc, d.opts, d.logger)
	}
	d.initialized = true

	d.logger.WithFields(logrus.Fields{
		"software_version": info.SoftwareVersion,
		"serial_number":    info.HardwareSerialNumber,
		"services":         services.Len(),
	}).Info("OpenVario device initialized")
	return nil
}

// Initialized reports whether Initialize has succeeded.
func (d *Device) Initialized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initialized
}

// Services returns the discovered services in discovery order.
func (d *Device) Services() []*device.Service {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.services == nil {
		return nil
	}
	out := make([]*device.Service, 0, d.services.Len())
	for pair := d.services.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Info returns the identification record read during Initialize.
func (d *Device) Info() (IdentificationInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return IdentificationInfo{}, device.ErrNotInitialized
	}
	return d.info, nil
}

func available[T any](initialized bool, svc *T) (*T, error) {
	if !initialized {
		return nil, device.ErrNotInitialized
	}
	if svc == nil {
		return nil, ErrServiceUnavailable
	}
	return svc, nil
}

func (d *Device) Identification() (*Identification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return available(d.initialized, d.identification)
}

func (d *Device) Altimeter() (*Altimeter, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return available(d.initialized, d.altimeter)
}

func (d *Device) Barometer() (*Barometer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return available(d.initialized, d.barometer)
}

func (d *Device) Navigation() (*Navigation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return available(d.initialized, d.navigation)
}

func (d *Device) Variometer() (*Variometer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return available(d.initialized, d.variometer)
}

// Close ends every service's event stream. The transport stays open.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.altimeter != nil {
		d.altimeter.Close()
	}
	if d.barometer != nil {
		d.barometer.Close()
	}
	if d.navigation != nil {
		d.navigation.Close()
	}
	if d.variometer != nil {
		d.variometer.Close()
	}
}
