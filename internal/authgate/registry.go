package authgate

import "sync"

// Registry is an in-memory Directory. The hypergrid CLI loads it from and
// saves it to clients.json beside the store database.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]AuthorizedClient
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]AuthorizedClient)}
}

// Lookup implements Directory.
func (r *Registry) Lookup(clientID string) (AuthorizedClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[clientID]
	return c, ok
}

// Put registers or replaces a client.
func (r *Registry) Put(client AuthorizedClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.ClientID] = client
}

// Remove deletes a client, if present.
func (r *Registry) Remove(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, clientID)
}

// List returns every registered client.
func (r *Registry) List() []AuthorizedClient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]AuthorizedClient, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}
