package relay

import "sync"

// hub wakes long polls waiting on a topic.
type hub struct {
	mu     sync.Mutex
	topics map[string]chan struct{}
}

func newHub() *hub {
	return &hub{topics: make(map[string]chan struct{})}
}

// wait returns a channel that is closed the next time topic is notified.
func (h *hub) wait(topic string) <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.topics[topic]
	if !ok {
		ch = make(chan struct{})
		h.topics[topic] = ch
	}
	return ch
}

func (h *hub) notify(topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.topics[topic]; ok {
		close(ch)
		delete(h.topics, topic)
	}
}
