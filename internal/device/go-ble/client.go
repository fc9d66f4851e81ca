package goble

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/openvario/internal/device"
	"github.com/srg/openvario/internal/groutine"
)

// gattClient is the part of ble.Client this backend uses.
type gattClient interface {
	DiscoverServices(filter []ble.UUID) ([]*ble.Service, error)
	DiscoverIncludedServices(filter []ble.UUID, s *ble.Service) ([]*ble.Service, error)
	DiscoverCharacteristics(filter []ble.UUID, s *ble.Service) ([]*ble.Characteristic, error)
	DiscoverDescriptors(filter []ble.UUID, c *ble.Characteristic) ([]*ble.Descriptor, error)
	ReadCharacteristic(c *ble.Characteristic) ([]byte, error)
	WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error
	Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error
	Unsubscribe(c *ble.Characteristic, ind bool) error
	CancelConnection() error
}

// Client implements device.Client on a go-ble connection.
//
// go-ble hands out fresh native pointers on every discovery. Client keys
// handles by attribute identity (kind, parent, UUID and position among
// siblings with the same UUID), so a rediscovered attribute keeps its handle
// and the handle resolves to the most recently discovered native value.
type Client struct {
	conn   gattClient
	logger *logrus.Logger

	mu         sync.Mutex
	nextHandle device.Handle
	handles    map[attrKey]device.Handle
	services   map[device.Handle]*ble.Service
	chars      map[device.Handle]*ble.Characteristic
	descs      map[device.Handle]*ble.Descriptor

	disconnected chan struct{}
	closeOnce    sync.Once
}

var _ device.Client = (*Client)(nil)

func newClient(conn gattClient, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		conn:         conn,
		logger:       logger,
		nextHandle:   1,
		handles:      make(map[attrKey]device.Handle),
		services:     make(map[device.Handle]*ble.Service),
		chars:        make(map[device.Handle]*ble.Characteristic),
		descs:        make(map[device.Handle]*ble.Descriptor),
		disconnected: make(chan struct{}),
	}
}

// Dial connects to address using the adapter from DeviceFactory.
func Dial(ctx context.Context, address string, timeout time.Duration, logger *logrus.Logger) (*Client, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("device address is empty")
	}

	logger.WithFields(logrus.Fields{
		"address": address,
		"timeout": timeout,
	}).Info("Connecting to BLE device...")

	dev, err := DeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to create BLE device: %w", NormalizeError(err))
	}
	ble.SetDefaultDevice(dev)

	dialCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	bc, err := ble.Dial(dialCtx, ble.NewAddr(address))
	if err != nil {
		logger.WithFields(logrus.Fields{
			"address": address,
			"error":   err,
		}).Error("Failed to dial BLE device")
		return nil, fmt.Errorf("failed to connect to device with address %q: %w", address, NormalizeError(err))
	}

	c := newClient(bc, logger)
	if notifier, ok := bc.(interface{ Disconnected() <-chan struct{} }); ok {
		c.monitor(notifier.Disconnected())
	} else {
		logger.Debug("Client does not expose a disconnection channel")
	}

	logger.WithField("address", address).Info("BLE device connected")
	return c, nil
}

// monitor closes Disconnected when the link drops.
func (c *Client) monitor(lost <-chan struct{}) {
	if lost == nil {
		return
	}
	groutine.Go(context.Background(), "ble-connection-monitor", func(context.Context) {
		select {
		case <-lost:
			c.logger.Warn("BLE link reported disconnection")
			c.markDisconnected()
		case <-c.disconnected:
		}
	})
}

func (c *Client) markDisconnected() {
	c.closeOnce.Do(func() { close(c.disconnected) })
}

// Disconnected is closed once the link is gone, whether dropped or closed locally.
func (c *Client) Disconnected() <-chan struct{} {
	return c.disconnected
}

type result[T any] struct {
	val T
	err error
}

// call runs a blocking go-ble operation and gives up when ctx is done.
// go-ble calls cannot be interrupted, so an abandoned call finishes in the
// background and its result is dropped.
func call[T any](ctx context.Context, name string, fn func() (T, error)) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	ch := make(chan result[T], 1)
	groutine.Go(ctx, name, func(context.Context) {
		v, err := fn()
		ch <- result[T]{val: v, err: NormalizeError(err)}
	})
	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

type attrKey struct {
	kind   device.Kind
	parent device.Handle
	uuid   uuid.UUID
	nth    int
}

// siblings assigns handles to the attributes found under one parent.
// Callers hold c.mu.
type siblings struct {
	c      *Client
	kind   device.Kind
	parent device.Handle
	seen   map[uuid.UUID]int
}

func (c *Client) siblings(kind device.Kind, parent device.Handle) *siblings {
	return &siblings{c: c, kind: kind, parent: parent, seen: make(map[uuid.UUID]int)}
}

func (sb *siblings) handle(id uuid.UUID) device.Handle {
	key := attrKey{kind: sb.kind, parent: sb.parent, uuid: id, nth: sb.seen[id]}
	sb.seen[id]++
	if h, ok := sb.c.handles[key]; ok {
		return h
	}
	h := sb.c.nextHandle
	sb.c.nextHandle++
	sb.c.handles[key] = h
	return h
}

// wrapServices translates natives discovered under parent (0 for the
// primary services of the device).
func (c *Client) wrapServices(parent device.Handle, natives []*ble.Service) []*device.Service {
	c.mu.Lock()
	defer c.mu.Unlock()

	sb := c.siblings(device.KindService, parent)
	out := make([]*device.Service, 0, len(natives))
	for _, s := range natives {
		id := ToUUID(s.UUID)
		h := sb.handle(id)
		c.services[h] = s
		out = append(out, device.NewService(id, ble.Name(s.UUID), h))
	}
	return out
}

func (c *Client) service(svc *device.Service) (*ble.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.services[svc.Handle]
	if !ok {
		return nil, &device.NotFoundError{Resource: "service", UUIDs: []uuid.UUID{svc.UUID}}
	}
	return s, nil
}

func (c *Client) characteristic(char *device.Characteristic) (*ble.Characteristic, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bc, ok := c.chars[char.Handle]
	if !ok {
		return nil, &device.NotFoundError{Resource: "characteristic", UUIDs: []uuid.UUID{char.UUID}}
	}
	return bc, nil
}

func (c *Client) DiscoverServices(ctx context.Context) ([]*device.Service, error) {
	natives, err := call(ctx, "ble-discover-services", func() ([]*ble.Service, error) {
		return c.conn.DiscoverServices(nil)
	})
	if err != nil {
		return nil, err
	}
	return c.wrapServices(0, natives), nil
}

func (c *Client) DiscoverIncludedServices(ctx context.Context, svc *device.Service) ([]*device.Service, error) {
	s, err := c.service(svc)
	if err != nil {
		return nil, err
	}
	natives, err := call(ctx, "ble-discover-included", func() ([]*ble.Service, error) {
		return c.conn.DiscoverIncludedServices(nil, s)
	})
	if err != nil {
		return nil, err
	}
	return c.wrapServices(svc.Handle, natives), nil
}

func (c *Client) DiscoverCharacteristics(ctx context.Context, svc *device.Service) ([]*device.Characteristic, error) {
	s, err := c.service(svc)
	if err != nil {
		return nil, err
	}
	natives, err := call(ctx, "ble-discover-characteristics", func() ([]*ble.Characteristic, error) {
		return c.conn.DiscoverCharacteristics(nil, s)
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	sb := c.siblings(device.KindCharacteristic, svc.Handle)
	out := make([]*device.Characteristic, 0, len(natives))
	for _, bc := range natives {
		id := ToUUID(bc.UUID)
		h := sb.handle(id)
		c.chars[h] = bc
		out = append(out, device.NewCharacteristic(id, ble.Name(bc.UUID), h, ToProperties(bc.Property)))
	}
	return out, nil
}

func (c *Client) DiscoverDescriptors(ctx context.Context, char *device.Characteristic) ([]*device.Descriptor, error) {
	bc, err := c.characteristic(char)
	if err != nil {
		return nil, err
	}
	natives, err := call(ctx, "ble-discover-descriptors", func() ([]*ble.Descriptor, error) {
		return c.conn.DiscoverDescriptors(nil, bc)
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	sb := c.siblings(device.KindDescriptor, char.Handle)
	out := make([]*device.Descriptor, 0, len(natives))
	for _, d := range natives {
		id := ToUUID(d.UUID)
		h := sb.handle(id)
		c.descs[h] = d
		out = append(out, device.NewDescriptor(id, ble.Name(d.UUID), h))
	}
	return out, nil
}

func (c *Client) Read(ctx context.Context, char *device.Characteristic) ([]byte, error) {
	bc, err := c.characteristic(char)
	if err != nil {
		return nil, err
	}
	return call(ctx, "ble-read", func() ([]byte, error) {
		return c.conn.ReadCharacteristic(bc)
	})
}

// Write uses a write request unless the characteristic only accepts write commands.
func (c *Client) Write(ctx context.Context, char *device.Characteristic, data []byte) error {
	bc, err := c.characteristic(char)
	if err != nil {
		return err
	}
	noRsp := !char.Properties.Has(device.PropWrite) && char.Properties.Has(device.PropWriteWithoutResponse)
	_, err = call(ctx, "ble-write", func() (struct{}, error) {
		return struct{}{}, c.conn.WriteCharacteristic(bc, data, noRsp)
	})
	return err
}

func (c *Client) Subscribe(ctx context.Context, char *device.Characteristic, indicate bool, h device.NotificationHandler) error {
	bc, err := c.characteristic(char)
	if err != nil {
		return err
	}
	handle := char.Handle
	_, err = call(ctx, "ble-subscribe", func() (struct{}, error) {
		if err := c.ensureCCCD(bc); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, c.conn.Subscribe(bc, indicate, func(data []byte) {
			h(handle, data)
		})
	})
	return err
}

func (c *Client) Unsubscribe(ctx context.Context, char *device.Characteristic, indicate bool) error {
	bc, err := c.characteristic(char)
	if err != nil {
		return err
	}
	_, err = call(ctx, "ble-unsubscribe", func() (struct{}, error) {
		if err := c.ensureCCCD(bc); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, c.conn.Unsubscribe(bc, indicate)
	})
	return err
}

// ensureCCCD discovers bc's descriptors when its CCCD is not known yet, as
// for a characteristic that was rediscovered after subscribing.
func (c *Client) ensureCCCD(bc *ble.Characteristic) error {
	if bc.CCCD != nil {
		return nil
	}
	_, err := c.conn.DiscoverDescriptors(nil, bc)
	return err
}

// Disconnect cancels the connection.
func (c *Client) Disconnect() error {
	err := NormalizeError(c.conn.CancelConnection())
	c.markDisconnected()
	return err
}
