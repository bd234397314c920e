package feed

import "sync"

// hub multicasts events to every attached subscriber. Delivery is
// best-effort: a subscriber whose buffer is full misses the event rather
// than blocking the decode loop, and events published while nobody is
// attached are dropped.
type hub struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	buf    int
	closed bool

	dropped int64
}

func newHub(buf int) *hub {
	if buf < 1 {
		buf = 1
	}
	return &hub{
		subs: make(map[int]chan Event),
		buf:  buf,
	}
}

// subscribe attaches a new subscriber and returns its channel plus a
// detach function. Detaching closes the channel.
func (h *hub) subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buf)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
}

// publish delivers evt to every subscriber without blocking.
func (h *hub) publish(evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
			h.dropped++
		}
	}
}

// close detaches and closes every subscriber channel. Subsequent
// subscribe calls return a closed channel.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

func (h *hub) subscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
