package identity

import "sync"

// Hub fans identity changes out to every watcher of a device within this
// process.
type Hub struct {
	mu       sync.Mutex
	watchers map[string]map[int]func(*User)
	nextID   int
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{watchers: make(map[string]map[int]func(*User))}
}

// Subscribe registers fn for deviceID and returns its cancel func.
func (h *Hub) Subscribe(deviceID string, fn func(*User)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	if h.watchers[deviceID] == nil {
		h.watchers[deviceID] = make(map[int]func(*User))
	}
	h.watchers[deviceID][id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.watchers[deviceID], id)
		if len(h.watchers[deviceID]) == 0 {
			delete(h.watchers, deviceID)
		}
	}
}

// Publish delivers user to the device's watchers synchronously, outside the hub lock.
func (h *Hub) Publish(deviceID string, user *User) {
	h.mu.Lock()
	fns := make([]func(*User), 0, len(h.watchers[deviceID]))
	for _, fn := range h.watchers[deviceID] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(cloneUser(user))
	}
}
