package vario

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/openvario/internal/device"
)

// Binding ties a semantic key to the characteristic UUID that carries it.
type Binding[K comparable] struct {
	Key  K
	UUID uuid.UUID
}

// Proxy is the lazy discovery and mapping layer shared by every vario service.
//
// Characteristics are discovered once and cached. The key mapping is
// all-or-nothing: it either holds every binding or is empty. A miss also
// drops the characteristic cache so the next attempt re-discovers.
type Proxy[K comparable] struct {
	transport device.Transport
	service   *device.Service
	bindings  []Binding[K]
	byUUID    map[uuid.UUID]K
	onValue   func(K, device.Value)
	logger    *logrus.Logger

	mu      sync.Mutex
	chars   map[uuid.UUID]*device.Characteristic // nil until listed
	mapping map[K]*device.Characteristic
}

// NewProxy binds a proxy to svc on t. onValue receives notifications,
// already demultiplexed to their key; it may be nil.
func NewProxy[K comparable](t device.Transport, svc *device.Service, bindings []Binding[K], onValue func(K, device.Value), logger *logrus.Logger) *Proxy[K] {
	if logger == nil {
		logger = logrus.New()
	}
	byUUID := make(map[uuid.UUID]K, len(bindings))
	for _, b := range bindings {
		byUUID[b.UUID] = b.Key
	}
	return &Proxy[K]{
		transport: t,
		service:   svc,
		bindings:  bindings,
		byUUID:    byUUID,
		onValue:   onValue,
		logger:    logger,
	}
}

// Service returns the GATT service the proxy is bound to.
func (p *Proxy[K]) Service() *device.Service {
	return p.service
}

// ListCharacteristics discovers the service's characteristics unless they are cached.
func (p *Proxy[K]) ListCharacteristics(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listLocked(ctx)
}

func (p *Proxy[K]) listLocked(ctx context.Context) error {
	if p.chars != nil {
		return nil
	}
	chars, err := p.transport.DiscoverCharacteristics(ctx, p.service)
	if err != nil {
		return err
	}
	p.chars = make(map[uuid.UUID]*device.Characteristic, len(chars))
	for _, c := range chars {
		p.chars[c.UUID] = c
	}
	p.logger.WithFields(logrus.Fields{
		"service_uuid":    p.service.UUID,
		"characteristics": len(chars),
	}).Debug("Service characteristics listed")
	return nil
}

// InitMapping resolves every binding to a discovered characteristic.
// It fails with *MissingCharacteristicError when any binding is absent.
func (p *Proxy[K]) InitMapping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mapLocked(ctx)
}

func (p *Proxy[K]) mapLocked(ctx context.Context) error {
	if len(p.mapping) > 0 {
		return nil
	}
	if err := p.listLocked(ctx); err != nil {
		return err
	}

	mapping := make(map[K]*device.Characteristic, len(p.bindings))
	var missing []uuid.UUID
	for _, b := range p.bindings {
		c, ok := p.chars[b.UUID]
		if !ok {
			missing = append(missing, b.UUID)
			continue
		}
		mapping[b.Key] = c
	}
	if len(missing) > 0 {
		p.mapping = nil
		p.chars = nil
		p.logger.WithFields(logrus.Fields{
			"service_uuid": p.service.UUID,
			"missing":      missing,
		}).Warn("Service is missing required characteristics")
		return &MissingCharacteristicError{Service: p.service.UUID, Missing: missing}
	}
	p.mapping = mapping
	return nil
}

// Characteristic returns the characteristic mapped to key, if the mapping is initialized.
func (p *Proxy[K]) Characteristic(key K) (*device.Characteristic, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.mapping[key]
	return c, ok
}

// Mapped reports how many keys are currently mapped.
func (p *Proxy[K]) Mapped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.mapping)
}

func (p *Proxy[K]) resolve(ctx context.Context, key K) (*device.Characteristic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.mapLocked(ctx); err != nil {
		return nil, err
	}
	c, ok := p.mapping[key]
	if !ok {
		return nil, fmt.Errorf("no characteristic bound to %v", key)
	}
	return c, nil
}

// Read returns the raw value behind key.
func (p *Proxy[K]) Read(ctx context.Context, key K) (device.Value, error) {
	c, err := p.resolve(ctx, key)
	if err != nil {
		return device.Value{}, err
	}
	return p.transport.ReadValue(ctx, c)
}

// Write stores v behind key.
func (p *Proxy[K]) Write(ctx context.Context, key K, v device.Value) error {
	c, err := p.resolve(ctx, key)
	if err != nil {
		return err
	}
	return p.transport.WriteValue(ctx, c, v)
}

// StartNotification subscribes to changes of key.
func (p *Proxy[K]) StartNotification(ctx context.Context, key K) error {
	c, err := p.resolve(ctx, key)
	if err != nil {
		return err
	}
	return p.transport.RegisterNotification(ctx, c, p.dispatch)
}

// StopNotification unsubscribes from changes of key.
func (p *Proxy[K]) StopNotification(ctx context.Context, key K) error {
	c, err := p.resolve(ctx, key)
	if err != nil {
		return err
	}
	return p.transport.UnregisterNotification(ctx, c)
}

// dispatch is the single listener every characteristic of the service shares.
func (p *Proxy[K]) dispatch(c *device.Characteristic, v device.Value) {
	key, ok := p.byUUID[c.UUID]
	if !ok {
		p.logger.WithFields(logrus.Fields{
			"service_uuid": p.service.UUID,
			"char_uuid":    c.UUID,
		}).Debug("Ignoring notification for unbound characteristic")
		return
	}
	if p.onValue != nil {
		p.onValue(key, v)
	}
}
