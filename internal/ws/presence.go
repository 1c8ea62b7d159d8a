package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Client is one live websocket connection bound to an identity. Writes
// are serialized through the mutex; gorilla connections do not allow
// concurrent writers.
type Client struct {
	identity string

	mu   sync.Mutex
	conn *websocket.Conn
}

func newClient(identity string, conn *websocket.Conn) *Client {
	return &Client{identity: identity, conn: conn}
}

func (c *Client) Identity() string {
	return c.identity
}

// Send pushes a JSON payload to the peer.
func (c *Client) Send(payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(payload)
}

func (c *Client) close() {
	c.conn.Close()
}

// Registry maps each live identity to its single active connection.
// One connection per identity is the supported model: a newer login
// supersedes the previous one. State is in-memory only; every identity
// is offline after a process restart until it logs in again.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]*Client),
	}
}

// SetOnline binds identity to c, unconditionally overwriting any prior
// entry. The superseded client, if any, is returned so the caller can
// close it.
func (r *Registry) SetOnline(identity string, c *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.clients[identity]
	r.clients[identity] = c
	if prev == c {
		return nil
	}
	return prev
}

// SetOffline removes the entry only while it still points at c. A stale
// disconnect from a superseded connection must not evict a newer login.
// Reports whether the entry was removed.
func (r *Registry) SetOffline(identity string, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clients[identity] != c {
		return false
	}
	delete(r.clients, identity)
	return true
}

// Get returns the live connection for identity, if any.
func (r *Registry) Get(identity string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[identity]
	return c, ok
}

func (r *Registry) IsOnline(identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[identity]
	return ok
}
