// Package hub tracks authenticated clients and fans broadcast messages out
// to their bounded outbound channels. Sends never block: a full queue drops
// the message for that client only.
package hub

import (
	"sync"

	"github.com/chatrelay/go-chat-relay/internal/logging"
	"github.com/chatrelay/go-chat-relay/internal/message"
	"github.com/chatrelay/go-chat-relay/internal/metrics"
)

// DefaultOutBufSize is the per-client outbound channel capacity.
const DefaultOutBufSize = 128

// Client is one authenticated connection's hub registration. The dispatcher
// is the only producer on Out; the connection's writer goroutine is the only
// consumer.
type Client struct {
	Addr      string
	User      message.User
	Out       chan *message.ServerMsg
	Closed    chan struct{}
	closeOnce sync.Once
}

// NewClient allocates a registration with a bounded outbound channel.
func NewClient(addr string, user message.User, bufSize int) *Client {
	if bufSize <= 0 {
		bufSize = DefaultOutBufSize
	}
	return &Client{
		Addr:   addr,
		User:   user,
		Out:    make(chan *message.ServerMsg, bufSize),
		Closed: make(chan struct{}),
	}
}

// Close signals the client is closed (idempotent).
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.Closed)
	})
}

// Hub maps peer addresses to live clients. An address appears at most once,
// only between successful authentication and reader termination.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// New creates an empty Hub.
func New() *Hub { return &Hub{clients: make(map[string]*Client)} }

// Add registers a client with the hub.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	prev := len(h.clients)
	h.clients[c.Addr] = c
	cur := len(h.clients)
	h.mu.Unlock()
	metrics.SetHubClients(cur)
	if prev == 0 && cur == 1 {
		logging.L().Info("clients_first_connected")
	}
}

// Remove unregisters a client and closes it; safe to call multiple times.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	cur, existed := h.clients[c.Addr]
	if existed && cur == c {
		delete(h.clients, c.Addr)
	}
	n := len(h.clients)
	h.mu.Unlock()
	c.Close()
	metrics.SetHubClients(n)
	if existed && n == 0 {
		logging.L().Info("clients_last_disconnected")
	}
}

// Get returns the client registered for addr.
func (h *Hub) Get(addr string) (*Client, bool) {
	h.mu.RLock()
	c, ok := h.clients[addr]
	h.mu.RUnlock()
	return c, ok
}

// Broadcast queues msg for every client except the one at from. A full
// outbound queue drops the message for that recipient only.
func (h *Hub) Broadcast(from string, msg *message.ServerMsg) int {
	clients := h.Snapshot()
	fanout := 0
	maxDepth, sumDepth := 0, 0
	for _, c := range clients {
		depth := len(c.Out)
		if depth > maxDepth {
			maxDepth = depth
		}
		sumDepth += depth
		if c.Addr == from {
			continue
		}
		fanout++
		select {
		case c.Out <- msg:
		default:
			metrics.IncHubDrop()
			logging.L().Warn("hub_queue_full", "addr", c.Addr, "user", string(c.User))
		}
	}
	metrics.SetBroadcastFanout(fanout)
	if len(clients) > 0 {
		metrics.SetQueueDepth(maxDepth, sumDepth/len(clients))
	}
	return fanout
}

// SendTo queues msg for the client at addr; a missing client or a full
// queue drops the message.
func (h *Hub) SendTo(addr string, msg *message.ServerMsg) bool {
	c, ok := h.Get(addr)
	if !ok {
		return false
	}
	select {
	case c.Out <- msg:
		return true
	default:
		metrics.IncHubDrop()
		return false
	}
}

// Snapshot returns a slice copy of current clients (read-only use).
func (h *Hub) Snapshot() []*Client {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	return clients
}

// Count returns the number of active clients.
func (h *Hub) Count() int { h.mu.RLock(); n := len(h.clients); h.mu.RUnlock(); return n }
