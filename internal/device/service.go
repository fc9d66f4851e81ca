package device

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind distinguishes the three GATT attribute categories.
type Kind int

const (
	KindService Kind = iota
	KindCharacteristic
	KindDescriptor
)

func (k Kind) String() string {
	switch k {
	case KindService:
		return "service"
	case KindCharacteristic:
		return "characteristic"
	case KindDescriptor:
		return "descriptor"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Handle is an opaque key assigned by the transport backend. It lets the
// backend find its native object for an attribute and routes notifications
// back to the attribute they belong to. Handles are unique per connection.
type Handle uint32

// Attribute is the common part of every GATT node.
type Attribute struct {
	UUID   uuid.UUID
	Name   string
	Kind   Kind
	Handle Handle
}

// Property is the BLE characteristic property bit set.
type Property uint8

const (
	PropBroadcast Property = 1 << iota
	PropRead
	PropWriteWithoutResponse
	PropWrite
	PropNotify
	PropIndicate
	PropSignedWrite
	PropExtended
)

var propertyNames = []struct {
	p    Property
	name string
}{
	{PropBroadcast, "broadcast"},
	{PropRead, "read"},
	{PropWriteWithoutResponse, "write-without-response"},
	{PropWrite, "write"},
	{PropNotify, "notify"},
	{PropIndicate, "indicate"},
	{PropSignedWrite, "signed-write"},
	{PropExtended, "extended"},
}

// Has reports whether every bit of q is set.
func (p Property) Has(q Property) bool { return p&q == q }

func (p Property) String() string {
	var names []string
	for _, pn := range propertyNames {
		if p.Has(pn.p) {
			names = append(names, pn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// Service is a discovered GATT service.
type Service struct {
	Attribute
}

// NewService creates a service attribute.
func NewService(id uuid.UUID, name string, h Handle) *Service {
	return &Service{Attribute: Attribute{UUID: id, Name: name, Kind: KindService, Handle: h}}
}

// Characteristic is a discovered GATT characteristic. Its capabilities are
// derived from Properties once at construction and never change.
type Characteristic struct {
	Attribute
	Properties Property

	canRead   bool
	canWrite  bool
	canNotify bool
}

// NewCharacteristic creates a characteristic attribute and derives its capabilities.
func NewCharacteristic(id uuid.UUID, name string, h Handle, props Property) *Characteristic {
	return &Characteristic{
		Attribute:  Attribute{UUID: id, Name: name, Kind: KindCharacteristic, Handle: h},
		Properties: props,
		canRead:    props.Has(PropRead),
		canWrite:   props.Has(PropWrite) || props.Has(PropWriteWithoutResponse),
		canNotify:  props.Has(PropNotify) || props.Has(PropIndicate),
	}
}

func (c *Characteristic) CanRead() bool   { return c.canRead }
func (c *Characteristic) CanWrite() bool  { return c.canWrite }
func (c *Characteristic) CanNotify() bool { return c.canNotify }

// Descriptor is a discovered GATT descriptor.
type Descriptor struct {
	Attribute
}

// NewDescriptor creates a descriptor attribute.
func NewDescriptor(id uuid.UUID, name string, h Handle) *Descriptor {
	return &Descriptor{Attribute: Attribute{UUID: id, Name: name, Kind: KindDescriptor, Handle: h}}
}
