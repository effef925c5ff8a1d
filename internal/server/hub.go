// Package server tracks live WebSocket clients by connection id and hands
// their send buffers to the room coordinator via the Hub type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/roomrelay/internal/presence"
)

// Hub owns the set of live clients. It implements presence.Sender so the
// coordinator can enqueue frames without touching the network.
type Hub struct {
	clients     map[string]*Client
	register    chan *Client
	unregister  chan *Client
	coordinator *presence.Coordinator
	metrics     *Metrics
	log         *slog.Logger
	mutex       sync.RWMutex
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewHub creates a hub. The coordinator is attached afterwards because it
// needs the hub as its sender.
func NewHub(metrics *Metrics, log *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		metrics:    metrics,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// attach binds the coordinator whose sessions are dropped on disconnect.
func (h *Hub) attach(coord *presence.Coordinator) {
	h.coordinator = coord
}

// Send enqueues payload on the client's buffer without blocking. A client
// whose buffer is full is evicted.
func (h *Hub) Send(connectionID string, payload []byte) bool {
	h.mutex.RLock()
	client, exists := h.clients[connectionID]
	if !exists || client.closed {
		h.mutex.RUnlock()
		h.countDropped()
		return false
	}

	select {
	case client.send <- payload:
		h.mutex.RUnlock()
		if h.metrics != nil {
			h.metrics.delivered.Inc()
		}
		return true
	default:
		h.mutex.RUnlock()
		h.countDropped()
		h.log.Warn("Send buffer full, evicting client", "connection_id", connectionID, "addr", client.addr)
		h.evict(client)
		return false
	}
}

func (h *Hub) countDropped() {
	if h.metrics != nil {
		h.metrics.dropped.Inc()
	}
}

// evict schedules unregistration. It never blocks the caller, which may be
// holding the coordinator lock.
func (h *Hub) evict(client *Client) {
	go func() {
		select {
		case h.unregister <- client:
		case <-h.ctx.Done():
		}
	}()
}

// Len returns the number of registered clients.
func (h *Hub) Len() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Register hands a freshly upgraded client to the run loop. It returns false
// once the hub is shutting down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Run starts the hub's event loop. It must run in its own goroutine and
// returns once Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("Received nil client registration; skipping")
				continue
			}
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.mutex.Lock()
	client.closed = false
	h.clients[client.id] = client
	clientCount := len(h.clients)
	h.mutex.Unlock()

	if h.metrics != nil {
		h.metrics.connections.Set(float64(clientCount))
	}
	h.log.Info("Client registered", "connection_id", client.id, "addr", client.addr, "clients", clientCount)

	if h.coordinator != nil {
		h.coordinator.Notify(client.id, ConnectedEvent{ConnectionID: client.id})
	}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// handleUnregister drops client and its session. The session is dropped even
// when the client was already evicted, since its read pump may have applied
// one more frame in between.
func (h *Hub) handleUnregister(client *Client) {
	h.mutex.Lock()
	current, ok := h.clients[client.id]
	if !ok || current != client {
		h.mutex.Unlock()
		h.disconnect(client.id)
		return
	}
	delete(h.clients, client.id)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock
	close(client.send)

	if h.metrics != nil {
		h.metrics.connections.Set(float64(clientCount))
	}
	h.disconnect(client.id)
	h.log.Info("Client unregistered", "connection_id", client.id, "addr", client.addr, "clients", clientCount)
}

func (h *Hub) disconnect(connectionID string) {
	if h.coordinator != nil {
		h.coordinator.Disconnect(connectionID)
	}
}

// live reports whether client is still registered and accepting frames.
func (h *Hub) live(client *Client) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	current, ok := h.clients[client.id]
	return ok && current == client && !client.closed
}

// shutdownClients closes every connection and drops their sessions.
func (h *Hub) shutdownClients() {
	h.log.Info("Shutting down all client connections...")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.log.Error("Error closing client connection", "addr", client.addr, "error", err)
			}
		}
		h.disconnect(client.id)
	}

	h.log.Info("Closed client connections", "count", len(clients))
}

// Shutdown stops the run loop and waits for client goroutines to finish or
// for timeout to elapse.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		h.log.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
