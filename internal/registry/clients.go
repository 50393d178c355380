// Package registry tracks the live push connections of browser tabs and fans
// notifications out to all of them.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/docsman/internal/errors"
	"github.com/conneroisu/docsman/internal/logging"
)

const (
	// DefaultSendTimeout bounds a single send so one stalled tab cannot hold
	// up a broadcast.
	DefaultSendTimeout = 5 * time.Second

	// DefaultMaxConcurrentSends caps the goroutines used per broadcast.
	DefaultMaxConcurrentSends = 32
)

// Conn is a push connection as seen by the registry.
type Conn interface {
	// Send delivers one message. It must respect ctx's deadline.
	Send(ctx context.Context, message []byte) error
	// Close tears the connection down. It may be called more than once.
	Close() error
}

// BroadcastResult summarizes one fan-out pass.
type BroadcastResult struct {
	Delivered int
	Evicted   int
}

type client struct {
	id   string
	conn Conn
}

// ClientRegistry maps client identifiers to connections.
//
// All map mutation happens under mutex. Sends never run while the mutex is
// held: Broadcast snapshots the map, sends without the lock, then evicts the
// failed clients in a second locked step. broadcastMutex serializes whole
// broadcasts so each client sees messages in call order.
type ClientRegistry struct {
	clients map[string]Conn
	mutex   sync.RWMutex

	broadcastMutex sync.Mutex

	sendTimeout    time.Duration
	maxConcurrency int
	newID          func() string
	logger         logging.Logger
}

// Option configures a ClientRegistry.
type Option func(*ClientRegistry)

// WithSendTimeout overrides DefaultSendTimeout.
func WithSendTimeout(timeout time.Duration) Option {
	return func(r *ClientRegistry) {
		if timeout > 0 {
			r.sendTimeout = timeout
		}
	}
}

// WithMaxConcurrentSends overrides DefaultMaxConcurrentSends.
func WithMaxConcurrentSends(n int) Option {
	return func(r *ClientRegistry) {
		if n > 0 {
			r.maxConcurrency = n
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger logging.Logger) Option {
	return func(r *ClientRegistry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewClientRegistry creates an empty registry.
func NewClientRegistry(opts ...Option) *ClientRegistry {
	r := &ClientRegistry{
		clients:        make(map[string]Conn),
		sendTimeout:    DefaultSendTimeout,
		maxConcurrency: DefaultMaxConcurrentSends,
		newID:          uuid.NewString,
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("registry")

	return r
}

// Add stores conn under a fresh random identifier and returns it.
func (r *ClientRegistry) Add(conn Conn) string {
	r.mutex.Lock()
	id := r.newID()
	for _, taken := r.clients[id]; taken; _, taken = r.clients[id] {
		id = r.newID()
	}
	r.clients[id] = conn
	count := len(r.clients)
	r.mutex.Unlock()

	r.logger.Info(context.Background(), "Client connected", "client_id", id, "total", count)
	return id
}

// Remove drops the client and closes its connection. Removing an unknown id
// is a no-op.
func (r *ClientRegistry) Remove(id string) {
	r.mutex.Lock()
	conn, ok := r.clients[id]
	if ok {
		delete(r.clients, id)
	}
	count := len(r.clients)
	r.mutex.Unlock()

	if !ok {
		return
	}

	_ = conn.Close()
	r.logger.Info(context.Background(), "Client disconnected", "client_id", id, "total", count)
}

// Count returns the number of registered clients.
func (r *ClientRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.clients)
}

// has reports whether id is registered.
func (r *ClientRegistry) has(id string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	_, ok := r.clients[id]
	return ok
}

// Broadcast sends message to every registered client. A client whose send
// fails or times out is evicted after the pass completes. Broadcast itself
// never fails.
func (r *ClientRegistry) Broadcast(ctx context.Context, message []byte) BroadcastResult {
	r.broadcastMutex.Lock()
	defer r.broadcastMutex.Unlock()

	r.mutex.RLock()
	snapshot := make([]client, 0, len(r.clients))
	for id, conn := range r.clients {
		snapshot = append(snapshot, client{id: id, conn: conn})
	}
	r.mutex.RUnlock()

	if len(snapshot) == 0 {
		return BroadcastResult{}
	}

	var (
		failed      []string
		failedMutex sync.Mutex
	)

	var group errgroup.Group
	group.SetLimit(r.maxConcurrency)

	for _, c := range snapshot {
		group.Go(func() error {
			sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
			defer cancel()

			if err := c.conn.Send(sendCtx, message); err != nil {
				sendErr := errors.NewSendError("ERR_SEND", "failed to send message", err).
					WithContext("client_id", c.id)
				r.logger.Warn(ctx, sendErr, "Evicting client", "client_id", c.id)

				failedMutex.Lock()
				failed = append(failed, c.id)
				failedMutex.Unlock()
			}
			// Send failures are per-client; never cancel the group.
			return nil
		})
	}
	_ = group.Wait()

	for _, id := range failed {
		r.Remove(id)
	}

	return BroadcastResult{
		Delivered: len(snapshot) - len(failed),
		Evicted:   len(failed),
	}
}

// CloseAll closes and removes every client.
func (r *ClientRegistry) CloseAll() {
	r.mutex.Lock()
	clients := r.clients
	r.clients = make(map[string]Conn)
	r.mutex.Unlock()

	for _, conn := range clients {
		_ = conn.Close()
	}
}
