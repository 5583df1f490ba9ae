package hostregistry

import "github.com/coldframe/origin/internal/herr"

// Registry is the pure, read-only (address,port,name) -> Host lookup
// table of spec.md §4.1. Built once at startup; Lookup and All never
// mutate it, so a *Registry is safe to share across every
// connection's goroutine (spec.md §5's "Host-registry lookups are
// read-only during connection handling").
type Registry struct {
	hosts []*Host
	byID  map[string]*Host
}

// NewRegistry builds a Registry from hosts, rejecting duplicate
// identity keys as a ConfigError.
func NewRegistry(hosts ...*Host) (*Registry, error) {
	r := &Registry{
		hosts: make([]*Host, 0, len(hosts)),
		byID:  make(map[string]*Host, len(hosts)),
	}
	for _, h := range hosts {
		if _, dup := r.byID[h.ID()]; dup {
			return nil, herr.ConfigErrorf("duplicate host identity %q", h.ID())
		}
		r.byID[h.ID()] = h
		r.hosts = append(r.hosts, h)
	}
	return r, nil
}

// Lookup returns the Host whose identity exactly matches identity, or
// the first Host whose Matches(identity) succeeds via a wildcard,
// preferring an exact match.
func (r *Registry) Lookup(identity string) (*Host, bool) {
	if h, ok := r.byID[identity]; ok {
		return h, true
	}
	for _, h := range r.hosts {
		if h.Matches(identity) {
			return h, true
		}
	}
	return nil, false
}

// All returns every registered host, in registration order.
func (r *Registry) All() []*Host {
	out := make([]*Host, len(r.hosts))
	copy(out, r.hosts)
	return out
}
