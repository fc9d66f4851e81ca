package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Connection implements Transport on top of a backend Client.
type Connection struct {
	client Client
	router *Router
	logger *logrus.Logger
	closed atomic.Bool

	// lifecycle is held shared by notification (un)registration and
	// exclusively by Close, so Close never runs between a registration's
	// open check and its CCCD write.
	lifecycle sync.RWMutex
}

var _ Transport = (*Connection)(nil)

// NewConnection wraps a connected backend client.
func NewConnection(client Client, logger *logrus.Logger) *Connection {
	if logger == nil {
		logger = logrus.New()
	}
	return &Connection{
		client: client,
		router: NewRouter(logger),
		logger: logger,
	}
}

// Router exposes the notification router backing this connection.
func (c *Connection) Router() *Router {
	return c.router
}

func (c *Connection) checkOpen() error {
	if c.closed.Load() {
		return ErrNotConnected
	}
	return nil
}

func commErr(op string, id uuid.UUID, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &CommunicationError{Op: op, UUID: id, Err: err}
}

func (c *Connection) DiscoverServices(ctx context.Context) ([]*Service, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	services, err := c.client.DiscoverServices(ctx)
	if err != nil {
		c.logger.WithError(err).Error("Service discovery failed")
		return nil, commErr("discover-services", uuid.Nil, err)
	}
	c.logger.WithField("services", len(services)).Debug("Services discovered")
	return services, nil
}

func (c *Connection) DiscoverIncludedServices(ctx context.Context, svc *Service) ([]*Service, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	services, err := c.client.DiscoverIncludedServices(ctx, svc)
	if err != nil {
		return nil, commErr("discover-included-services", svc.UUID, err)
	}
	return services, nil
}

// DiscoverCharacteristics queries the characteristics of svc and indexes them
// by handle so that their notifications can be routed.
func (c *Connection) DiscoverCharacteristics(ctx context.Context, svc *Service) ([]*Characteristic, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	chars, err := c.client.DiscoverCharacteristics(ctx, svc)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"service_uuid": svc.UUID,
			"error":        err,
		}).Error("Characteristic discovery failed")
		return nil, commErr("discover-characteristics", svc.UUID, err)
	}
	for _, char := range chars {
		c.router.Track(char)
	}
	c.logger.WithFields(logrus.Fields{
		"service_uuid":    svc.UUID,
		"characteristics": len(chars),
	}).Debug("Characteristics discovered")
	return chars, nil
}

func (c *Connection) DiscoverDescriptors(ctx context.Context, char *Characteristic) ([]*Descriptor, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	descs, err := c.client.DiscoverDescriptors(ctx, char)
	if err != nil {
		return nil, commErr("discover-descriptors", char.UUID, err)
	}
	return descs, nil
}

func (c *Connection) ReadValue(ctx context.Context, char *Characteristic) (Value, error) {
	if err := c.checkOpen(); err != nil {
		return Value{}, err
	}
	data, err := c.client.Read(ctx, char)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"char_uuid": char.UUID,
			"error":     err,
		}).Warn("Characteristic read failed")
		return Value{}, commErr("read", char.UUID, err)
	}
	v := BytesValue(data)
	c.logger.WithFields(logrus.Fields{
		"char_uuid": char.UUID,
		"value":     v,
	}).Debug("Characteristic read")
	return v, nil
}

func (c *Connection) WriteValue(ctx context.Context, char *Characteristic, v Value) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if err := c.client.Write(ctx, char, v.Bytes()); err != nil {
		c.logger.WithFields(logrus.Fields{
			"char_uuid": char.UUID,
			"error":     err,
		}).Warn("Characteristic write failed")
		return commErr("write", char.UUID, err)
	}
	c.logger.WithFields(logrus.Fields{
		"char_uuid": char.UUID,
		"value":     v,
	}).Debug("Characteristic written")
	return nil
}

func (c *Connection) RegisterNotification(ctx context.Context, char *Characteristic, l Listener) error {
	c.lifecycle.RLock()
	defer c.lifecycle.RUnlock()

	if err := c.checkOpen(); err != nil {
		return err
	}
	if l == nil {
		return fmt.Errorf("register notification for %s: nil listener", char.UUID)
	}

	var indicate bool
	switch {
	case char.Properties.Has(PropNotify):
		indicate = false
	case char.Properties.Has(PropIndicate):
		indicate = true
	default:
		return fmt.Errorf("characteristic %s: %w", char.UUID, ErrNotifyUnsupported)
	}

	c.router.Track(char)
	if !c.router.reserve(char, l, indicate) {
		return fmt.Errorf("characteristic %s: %w", char.UUID, ErrAlreadyRegistered)
	}

	if err := c.client.Subscribe(ctx, char, indicate, c.router.Dispatch); err != nil {
		c.router.release(char)
		c.logger.WithFields(logrus.Fields{
			"char_uuid": char.UUID,
			"indicate":  indicate,
			"error":     err,
		}).Error("Failed to enable notifications")
		return commErr("subscribe", char.UUID, err)
	}

	c.logger.WithFields(logrus.Fields{
		"char_uuid": char.UUID,
		"indicate":  indicate,
	}).Info("Notifications enabled")
	return nil
}

// UnregisterNotification writes the CCCD back to none and detaches the
// listener. The listener is detached even when the CCCD write fails, so a
// later RegisterNotification can start over.
func (c *Connection) UnregisterNotification(ctx context.Context, char *Characteristic) error {
	c.lifecycle.RLock()
	defer c.lifecycle.RUnlock()

	if err := c.checkOpen(); err != nil {
		return err
	}
	reg, ok := c.router.registered(char)
	if !ok {
		return fmt.Errorf("characteristic %s: %w", char.UUID, ErrNotRegistered)
	}

	err := c.client.Unsubscribe(ctx, char, reg.indicate)
	c.router.release(char)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"char_uuid": char.UUID,
			"error":     err,
		}).Warn("Failed to disable notifications")
		return commErr("unsubscribe", char.UUID, err)
	}

	c.logger.WithField("char_uuid", char.UUID).Info("Notifications disabled")
	return nil
}

// Close tears down every active registration and disconnects the backend.
// It waits for registrations in flight, so their CCCDs are disabled too.
// Further operations fail with ErrNotConnected.
func (c *Connection) Close(ctx context.Context) error {
	c.lifecycle.Lock()
	first := c.closed.CompareAndSwap(false, true)
	c.lifecycle.Unlock()
	if !first {
		return nil
	}

	for _, reg := range c.router.releaseAll() {
		if err := c.client.Unsubscribe(ctx, reg.char, reg.indicate); err != nil {
			c.logger.WithFields(logrus.Fields{
				"char_uuid": reg.char.UUID,
				"error":     err,
			}).Warn("Failed to disable notifications during close")
		}
	}

	if err := c.client.Disconnect(); err != nil {
		c.logger.WithError(err).Warn("Device disconnected with errors")
		return err
	}
	c.logger.Info("Device disconnected")
	return nil
}
