package server

import (
	"sync"

	"github.com/smokyabdulrahman/prayer-widget/internal/driver"
)

// hub fans driver updates out to connected live clients. Slow clients miss
// updates rather than stalling the driver.
type hub struct {
	mu      sync.Mutex
	clients map[chan driver.Update]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[chan driver.Update]struct{})}
}

// publish has the driver.Subscriber signature.
func (h *hub) publish(u driver.Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- u:
		default:
		}
	}
}

func (h *hub) subscribe() (<-chan driver.Update, func()) {
	ch := make(chan driver.Update, 4)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
