package device

import (
	"sync"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
)

type registration struct {
	char     *Characteristic
	listener Listener
	indicate bool
}

// Router turns raw (handle, payload) notifications into listener calls.
//
// The handle cache is written during discovery and read on the delivery
// goroutine, so it lives in a lock-free map. The listener registry is the
// one structure mutated from both sides and is guarded by mu, which is never
// held while a listener runs.
type Router struct {
	logger *logrus.Logger

	attributes *hashmap.Map[Handle, *Characteristic]

	mu        sync.Mutex
	listeners map[Handle]*registration
}

// NewRouter creates an empty router.
func NewRouter(logger *logrus.Logger) *Router {
	if logger == nil {
		logger = logrus.New()
	}
	return &Router{
		logger:     logger,
		attributes: hashmap.New[Handle, *Characteristic](),
		listeners:  make(map[Handle]*registration),
	}
}

// Track records char in the handle cache so notifications for it can be routed.
func (r *Router) Track(char *Characteristic) {
	r.attributes.Set(char.Handle, char)
}

// reserve attaches l to char unless a listener is already present.
func (r *Router) reserve(char *Characteristic, l Listener, indicate bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.listeners[char.Handle]; exists {
		return false
	}
	r.listeners[char.Handle] = &registration{char: char, listener: l, indicate: indicate}
	return true
}

// registered returns the current registration for char, if any.
func (r *Router) registered(char *Characteristic) (*registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.listeners[char.Handle]
	return reg, ok
}

// release detaches whatever listener char has.
func (r *Router) release(char *Characteristic) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.listeners, char.Handle)
}

// releaseAll detaches every listener and returns what was attached.
func (r *Router) releaseAll() []*registration {
	r.mu.Lock()
	defer r.mu.Unlock()

	regs := make([]*registration, 0, len(r.listeners))
	for h, reg := range r.listeners {
		regs = append(regs, reg)
		delete(r.listeners, h)
	}
	return regs
}

// Registered reports how many characteristics currently have a listener.
func (r *Router) Registered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

// Dispatch routes one notification payload. Unknown handles and
// characteristics without a listener are dropped.
func (r *Router) Dispatch(h Handle, data []byte) {
	char, ok := r.attributes.Get(h)
	if !ok {
		r.logger.WithField("handle", h).Debug("Dropping notification for unknown handle")
		return
	}

	r.mu.Lock()
	reg, ok := r.listeners[h]
	r.mu.Unlock()
	if !ok {
		r.logger.WithField("char_uuid", char.UUID).Debug("Dropping notification without listener")
		return
	}

	value := BytesValue(data)
	r.logger.WithFields(logrus.Fields{
		"char_uuid": char.UUID,
		"value":     value,
	}).Debug("Notification received")

	defer func() {
		if p := recover(); p != nil {
			r.logger.WithFields(logrus.Fields{
				"char_uuid": char.UUID,
				"panic":     p,
			}).Error("Notification listener panicked")
		}
	}()
	reg.listener(char, value)
}
