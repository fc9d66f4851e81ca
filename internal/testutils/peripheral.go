package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/srg/openvario/internal/device"
)

// ReadHook is consulted before every read of a characteristic. n counts reads
// of that characteristic starting at 1. A non-nil error fails the read.
type ReadHook func(n int) error

// WriteHook runs after a successful write of a characteristic.
type WriteHook func(p *Peripheral, data []byte) error

type fakeCharacteristic struct {
	char      *device.Characteristic
	value     []byte
	readHook  ReadHook
	writeHook WriteHook
	reads     int
	writes    [][]byte
}

type fakeService struct {
	svc     *device.Service
	chars   []*fakeCharacteristic
	include []*device.Service
}

type subscription struct {
	indicate bool
	handler  device.NotificationHandler
}

// Peripheral is a scripted in-memory GATT peer implementing device.Client.
// It stands in for a real backend in tests of everything above the transport.
type Peripheral struct {
	mu           sync.Mutex
	services     []*fakeService
	byUUID       map[uuid.UUID]*fakeCharacteristic
	subs         map[device.Handle]subscription
	calls        map[string]int
	discoverErr  error
	subscribeErr error
	disconnected bool
}

var _ device.Client = (*Peripheral)(nil)

func (p *Peripheral) count(op string) {
	p.calls[op]++
}

// Calls reports how many times op ran. Discovery of a service's characteristics
// is counted per service as "discover-characteristics:<uuid>".
func (p *Peripheral) Calls(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

func (p *Peripheral) findService(svc *device.Service) (*fakeService, error) {
	for _, fs := range p.services {
		if fs.svc.Handle == svc.Handle {
			return fs, nil
		}
	}
	return nil, &device.NotFoundError{Resource: "service", UUIDs: []uuid.UUID{svc.UUID}}
}

func (p *Peripheral) findCharacteristic(char *device.Characteristic) (*fakeCharacteristic, error) {
	fc, ok := p.byUUID[char.UUID]
	if !ok || fc.char.Handle != char.Handle {
		return nil, &device.NotFoundError{Resource: "characteristic", UUIDs: []uuid.UUID{char.UUID}}
	}
	return fc, nil
}

func (p *Peripheral) DiscoverServices(ctx context.Context) ([]*device.Service, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count("discover-services")

	if p.discoverErr != nil {
		return nil, p.discoverErr
	}
	out := make([]*device.Service, 0, len(p.services))
	for _, fs := range p.services {
		out = append(out, fs.svc)
	}
	return out, nil
}

func (p *Peripheral) DiscoverIncludedServices(ctx context.Context, svc *device.Service) ([]*device.Service, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count("discover-included-services")

	fs, err := p.findService(svc)
	if err != nil {
		return nil, err
	}
	return append([]*device.Service(nil), fs.include...), nil
}

func (p *Peripheral) DiscoverCharacteristics(ctx context.Context, svc *device.Service) ([]*device.Characteristic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count("discover-characteristics")
	p.count("discover-characteristics:" + svc.UUID.String())

	if p.discoverErr != nil {
		return nil, p.discoverErr
	}
	fs, err := p.findService(svc)
	if err != nil {
		return nil, err
	}
	out := make([]*device.Characteristic, 0, len(fs.chars))
	for _, fc := range fs.chars {
		out = append(out, fc.char)
	}
	return out, nil
}

// DiscoverDescriptors reports a CCCD for every characteristic that can notify.
func (p *Peripheral) DiscoverDescriptors(ctx context.Context, char *device.Characteristic) ([]*device.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count("discover-descriptors")

	fc, err := p.findCharacteristic(char)
	if err != nil {
		return nil, err
	}
	if !fc.char.CanNotify() {
		return nil, nil
	}
	return []*device.Descriptor{
		device.NewDescriptor(device.ShortUUID(0x2902), "Client Characteristic Configuration", fc.char.Handle+1),
	}, nil
}

func (p *Peripheral) Read(ctx context.Context, char *device.Characteristic) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count("read")

	fc, err := p.findCharacteristic(char)
	if err != nil {
		return nil, err
	}
	fc.reads++
	if fc.readHook != nil {
		if err := fc.readHook(fc.reads); err != nil {
			return nil, err
		}
	}
	if !fc.char.CanRead() {
		return nil, fmt.Errorf("characteristic %s does not support read", char.UUID)
	}
	return append([]byte(nil), fc.value...), nil
}

func (p *Peripheral) Write(ctx context.Context, char *device.Characteristic, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.count("write")

	fc, err := p.findCharacteristic(char)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	if !fc.char.CanWrite() {
		p.mu.Unlock()
		return fmt.Errorf("characteristic %s does not support write", char.UUID)
	}
	fc.value = append([]byte(nil), data...)
	fc.writes = append(fc.writes, fc.value)
	hook := fc.writeHook
	p.mu.Unlock()

	if hook != nil {
		return hook(p, data)
	}
	return nil
}

func (p *Peripheral) Subscribe(ctx context.Context, char *device.Characteristic, indicate bool, h device.NotificationHandler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count("subscribe")

	if p.subscribeErr != nil {
		return p.subscribeErr
	}
	if _, err := p.findCharacteristic(char); err != nil {
		return err
	}
	p.subs[char.Handle] = subscription{indicate: indicate, handler: h}
	return nil
}

func (p *Peripheral) Unsubscribe(ctx context.Context, char *device.Characteristic, indicate bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count("unsubscribe")

	delete(p.subs, char.Handle)
	return nil
}

func (p *Peripheral) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count("disconnect")
	p.disconnected = true
	return nil
}

// Disconnected reports whether Disconnect was called.
func (p *Peripheral) Disconnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disconnected
}

// Subscribed reports whether the CCCD of charID is enabled, and in which mode.
func (p *Peripheral) Subscribed(charID uuid.UUID) (subscribed, indicate bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fc, ok := p.byUUID[charID]
	if !ok {
		return false, false
	}
	sub, ok := p.subs[fc.char.Handle]
	return ok, sub.indicate
}

// Notify pushes data as a notification of charID. It reports false when the
// characteristic has no enabled CCCD.
func (p *Peripheral) Notify(charID uuid.UUID, data []byte) bool {
	p.mu.Lock()
	fc, ok := p.byUUID[charID]
	if !ok {
		p.mu.Unlock()
		return false
	}
	sub, ok := p.subs[fc.char.Handle]
	p.mu.Unlock()
	if !ok {
		return false
	}
	sub.handler(fc.char.Handle, data)
	return true
}

// NotifyHandle pushes data for a raw handle through any registered handler,
// as a misbehaving backend might.
func (p *Peripheral) NotifyHandle(h device.Handle, data []byte) bool {
	p.mu.Lock()
	var handler device.NotificationHandler
	for _, sub := range p.subs {
		handler = sub.handler
		break
	}
	p.mu.Unlock()
	if handler == nil {
		return false
	}
	handler(h, data)
	return true
}

// SetValue replaces the stored value of charID.
func (p *Peripheral) SetValue(charID uuid.UUID, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fc, ok := p.byUUID[charID]; ok {
		fc.value = append([]byte(nil), data...)
	}
}

// Value returns the stored value of charID.
func (p *Peripheral) Value(charID uuid.UUID) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fc, ok := p.byUUID[charID]; ok {
		return append([]byte(nil), fc.value...)
	}
	return nil
}

// Writes returns every payload written to charID, oldest first.
func (p *Peripheral) Writes(charID uuid.UUID) [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fc, ok := p.byUUID[charID]; ok {
		return append([][]byte(nil), fc.writes...)
	}
	return nil
}

// SetReadHook installs or clears the read hook of charID.
func (p *Peripheral) SetReadHook(charID uuid.UUID, hook ReadHook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fc, ok := p.byUUID[charID]; ok {
		fc.readHook = hook
	}
}

// SetDiscoverError makes service and characteristic discovery fail with err (nil clears).
func (p *Peripheral) SetDiscoverError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.discoverErr = err
}

// SetSubscribeError makes CCCD enable writes fail with err (nil clears).
func (p *Peripheral) SetSubscribeError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribeErr = err
}
