package device

import "context"

// Listener receives notification values for one characteristic.
// It runs on the backend's delivery goroutine and must not block for long.
type Listener func(c *Characteristic, v Value)

// Transport is the uniform GATT surface the protocol services are written against.
//
// Discovery is never cached at this level: every call re-queries the device.
// Failures are reported as *CommunicationError unless stated otherwise.
type Transport interface {
	DiscoverServices(ctx context.Context) ([]*Service, error)
	DiscoverIncludedServices(ctx context.Context, svc *Service) ([]*Service, error)
	DiscoverCharacteristics(ctx context.Context, svc *Service) ([]*Characteristic, error)
	DiscoverDescriptors(ctx context.Context, char *Characteristic) ([]*Descriptor, error)

	ReadValue(ctx context.Context, char *Characteristic) (Value, error)
	WriteValue(ctx context.Context, char *Characteristic, v Value) error

	// RegisterNotification enables notify (preferred) or indicate on char and
	// attaches l. A characteristic holds at most one listener.
	RegisterNotification(ctx context.Context, char *Characteristic, l Listener) error

	// UnregisterNotification disables delivery and detaches the listener.
	// It fails with ErrNotRegistered when no listener is attached.
	UnregisterNotification(ctx context.Context, char *Characteristic) error
}

// NotificationHandler is how a Client hands raw notification payloads back.
type NotificationHandler func(h Handle, data []byte)

// Client is the raw capability set of a platform BLE backend for one
// connected peer. Attributes it returns carry handles it can resolve later.
type Client interface {
	DiscoverServices(ctx context.Context) ([]*Service, error)
	DiscoverIncludedServices(ctx context.Context, svc *Service) ([]*Service, error)
	DiscoverCharacteristics(ctx context.Context, svc *Service) ([]*Characteristic, error)
	DiscoverDescriptors(ctx context.Context, char *Characteristic) ([]*Descriptor, error)

	Read(ctx context.Context, char *Characteristic) ([]byte, error)
	Write(ctx context.Context, char *Characteristic, data []byte) error

	// Subscribe writes the CCCD (indication when indicate is true, notification
	// otherwise) and delivers payloads to h.
	Subscribe(ctx context.Context, char *Characteristic, indicate bool, h NotificationHandler) error
	// Unsubscribe writes the CCCD back to none.
	Unsubscribe(ctx context.Context, char *Characteristic, indicate bool) error

	Disconnect() error
}
