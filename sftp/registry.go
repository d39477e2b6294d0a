package sftp

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Registry is the process-wide hostname-to-Connection map. Entries are
// created on first lookup and never removed: the surviving Connection's
// own subprocess and reader goroutine are torn down by the process, not
// by the registry, at program exit.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*Connection

	// dials collapses concurrent Connection lookups for the same host
	// into a single Connect call, so that two operands naming the same
	// remote host never race to dial `ssh -s HOST sftp` twice.
	dials singleflight.Group
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Connection)}
}

// defaultRegistry is the registry a differ.Comparison uses for remote
// operands unless it is given its own.
var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry { return defaultRegistry }

// Connection returns a shared, connected Connection for host, creating
// and connecting one if this is the first lookup for that host.
// Concurrent callers asking for the same host block on one another's
// Connect rather than dialing independently; connect() on the
// Connection itself remains idempotent regardless.
func (r *Registry) Connection(host string) (*Connection, error) {
	r.mu.Lock()
	conn, ok := r.conns[host]
	if !ok {
		conn = NewConnection(host)
		r.conns[host] = conn
	}
	r.mu.Unlock()

	_, err, _ := r.dials.Do(host, func() (any, error) {
		return nil, conn.Connect()
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}
