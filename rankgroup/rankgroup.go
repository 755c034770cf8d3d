// Package rankgroup is the rank-group registry: it turns a rank set,
// expressed relative to a parent communicator, into a dedicated sub-communicator,
// and remembers it by name so repeated lookups (e.g. re-executing the
// same transfer plan) don't re-split.
package rankgroup

import (
	"fmt"
	"sync"

	"github.com/scicoupler/fcoupler/mpi"
	"github.com/scicoupler/fcoupler/plan"
)

// Registry caches named sub-communicators split off a parent.
//
// Every rank of parent must call CreateSubgroup for a given name, even
// ranks outside ranks: MPI_Comm_split (and the Comm.Split it models) is
// collective over the whole parent group, not just the members of the
// resulting subgroup.
type Registry struct {
	mu     sync.Mutex
	groups map[string]mpi.Comm
}

func NewRegistry() *Registry {
	return &Registry{groups: make(map[string]mpi.Comm)}
}

// Get returns a previously created subgroup by name.
func (r *Registry) Get(name string) (mpi.Comm, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.groups[name]
	return c, ok
}

// CreateSubgroup splits parent into a subgroup containing exactly the
// ranks in members (numbered relative to parent), caching the result
// under name. Every rank of parent must call this, including ranks not
// in members: those ranks pass ordered=true or false uniformly and
// receive a nil Comm back, matching Comm.Split's exclusion convention.
//
// key controls relative rank ordering within the new group; when
// ordered is true, key is the caller's own parent rank, preserving the
// parent's rank order in the child so a plan's dedicated subgroup keeps
// a stable, reproducible rank order.
func (r *Registry) CreateSubgroup(parent mpi.Comm, name string, members plan.RankSet, ordered bool) (mpi.Comm, error) {
	if c, ok := r.Get(name); ok {
		return c, nil
	}
	color := -1
	if members.Contains(parent.Rank()) {
		color = 0
	}
	key := 0
	if ordered {
		key = parent.Rank()
	}
	sub, err := parent.Split(color, key)
	if err != nil {
		return nil, fmt.Errorf("rankgroup: split for %q: %w", name, err)
	}
	r.mu.Lock()
	r.groups[name] = sub
	r.mu.Unlock()
	return sub, nil
}
