package gateway

import (
	"sync"
	"time"

	obsmetrics "github.com/smallbiznis/retailpulse/internal/observability/metrics"
)

// Stats is a point-in-time view of the registry.
type Stats struct {
	TotalConnections int              `json:"total_connections"`
	Tenants          map[string]int   `json:"tenants"`
	OldestSeen       map[string]int64 `json:"oldest_seen_unix,omitempty"`
}

// Registry owns every live connection, grouped by tenant. All access goes
// through the mutex; callers get snapshots, never the live maps.
type Registry struct {
	mu      sync.RWMutex
	conns   map[string]*Conn
	tenants map[string]map[string]*Conn
}

func NewRegistry() *Registry {
	return &Registry{
		conns:   make(map[string]*Conn),
		tenants: make(map[string]map[string]*Conn),
	}
}

func (r *Registry) Add(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[c.ID] = c
	group, ok := r.tenants[c.TenantID]
	if !ok {
		group = make(map[string]*Conn)
		r.tenants[c.TenantID] = group
	}
	group[c.ID] = c
	obsmetrics.Gateway().SetConnections(len(r.conns))
}

// Remove detaches the connection and prunes the tenant group when it
// becomes empty. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[id]
	if !ok {
		return nil
	}
	delete(r.conns, id)
	if group, ok := r.tenants[c.TenantID]; ok {
		delete(group, id)
		if len(group) == 0 {
			delete(r.tenants, c.TenantID)
		}
	}
	obsmetrics.Gateway().SetConnections(len(r.conns))
	return c
}

func (r *Registry) TenantConns(tenantID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	group := r.tenants[tenantID]
	out := make([]*Conn, 0, len(group))
	for _, c := range group {
		out = append(out, c)
	}
	return out
}

// ActiveTenants lists tenants with at least one live connection.
func (r *Registry) ActiveTenants() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.tenants))
	for tenantID := range r.tenants {
		out = append(out, tenantID)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		TotalConnections: len(r.conns),
		Tenants:          make(map[string]int, len(r.tenants)),
		OldestSeen:       make(map[string]int64, len(r.tenants)),
	}
	for tenantID, group := range r.tenants {
		stats.Tenants[tenantID] = len(group)
		oldest := time.Time{}
		for _, c := range group {
			seen := c.LastSeen()
			if oldest.IsZero() || seen.Before(oldest) {
				oldest = seen
			}
		}
		if !oldest.IsZero() {
			stats.OldestSeen[tenantID] = oldest.Unix()
		}
	}
	return stats
}
