package device

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cornelk/hashmap"
	"github.com/google/uuid"
)

// Info describes a device seen during discovery.
type Info struct {
	ID          string
	Name        string
	Address     string
	RSSI        int
	TxPower     int
	Connected   bool
	Connectable bool
	Services    []uuid.UUID
}

// DiscoveryStatus is the state of a discovery run.
type DiscoveryStatus int

const (
	DiscoveryStopped DiscoveryStatus = iota
	DiscoveryInProgress
	DiscoveryComplete
	DiscoveryCanceled
	DiscoveryFailed
)

func (s DiscoveryStatus) String() string {
	switch s {
	case DiscoveryStopped:
		return "stopped"
	case DiscoveryInProgress:
		return "in progress"
	case DiscoveryComplete:
		return "complete"
	case DiscoveryCanceled:
		return "canceled"
	case DiscoveryFailed:
		return "failed"
	default:
		return fmt.Sprintf("DiscoveryStatus(%d)", int(s))
	}
}

// DiscoveryEventType marks what happened to a device.
type DiscoveryEventType int

const (
	EventDiscovered DiscoveryEventType = iota
	EventUpdated
	EventLost
	EventDiscoveryComplete
)

func (t DiscoveryEventType) String() string {
	switch t {
	case EventDiscovered:
		return "discovered"
	case EventUpdated:
		return "updated"
	case EventLost:
		return "lost"
	case EventDiscoveryComplete:
		return "discovery-complete"
	default:
		return fmt.Sprintf("DiscoveryEventType(%d)", int(t))
	}
}

// DiscoveryEvent is emitted by the discovery layer. Info is empty for
// EventDiscoveryComplete, Status is only meaningful for it.
type DiscoveryEvent struct {
	Type   DiscoveryEventType
	Info   Info
	Status DiscoveryStatus
	Err    error
}

// Registry holds the devices currently known from discovery events.
type Registry struct {
	mu      sync.Mutex // serializes Apply so updates merge atomically
	devices *hashmap.Map[string, *Info]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{devices: hashmap.New[string, *Info]()}
}

// Apply folds ev into the registry. Updated entries are mutated in place by
// ID; an empty name or address in an update keeps the previous one.
func (r *Registry) Apply(ev DiscoveryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Type {
	case EventDiscovered:
		info := ev.Info
		r.devices.Set(info.ID, &info)
	case EventUpdated:
		existing, ok := r.devices.Get(ev.Info.ID)
		if !ok {
			info := ev.Info
			r.devices.Set(info.ID, &info)
			return
		}
		merged := *existing
		if ev.Info.Name != "" {
			merged.Name = ev.Info.Name
		}
		if ev.Info.Address != "" {
			merged.Address = ev.Info.Address
		}
		if len(ev.Info.Services) > 0 {
			merged.Services = ev.Info.Services
		}
		merged.RSSI = ev.Info.RSSI
		merged.TxPower = ev.Info.TxPower
		merged.Connected = ev.Info.Connected
		merged.Connectable = ev.Info.Connectable
		r.devices.Set(merged.ID, &merged)
	case EventLost:
		r.devices.Del(ev.Info.ID)
	}
}

// Get returns a copy of the entry for id.
func (r *Registry) Get(id string) (Info, bool) {
	info, ok := r.devices.Get(id)
	if !ok {
		return Info{}, false
	}
	return *info, true
}

// Len returns the number of known devices.
func (r *Registry) Len() int {
	return r.devices.Len()
}

// List returns a snapshot sorted by ID.
func (r *Registry) List() []Info {
	out := make([]Info, 0, r.devices.Len())
	r.devices.Range(func(_ string, info *Info) bool {
		out = append(out, *info)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
