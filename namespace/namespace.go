// Package namespace is the namespace registry: it resolves a namespace
// name to the rank set that owns it and the physical model tag attached
// to it.
package namespace

import (
	"fmt"
	"sync"

	"github.com/scicoupler/fcoupler/plan"
)

// Namespace is one registered physical model's footprint within the
// coupling group: which ranks (numbered relative to the coupling
// communicator) own it, and the model tag used for logging and metrics
// labels.
type Namespace struct {
	Name          string
	Ranks         plan.RankSet
	PhysicalModel string
}

// Registry resolves namespace names to Namespace records. It is
// populated once at startup from configuration (config.Load) and is
// read-only from then on.
type Registry struct {
	mu         sync.RWMutex
	namespaces map[string]*Namespace
}

func NewRegistry() *Registry {
	return &Registry{namespaces: make(map[string]*Namespace)}
}

// Register adds or replaces a namespace's ownership record.
func (r *Registry) Register(ns *Namespace) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.namespaces[ns.Name] = ns
}

// ErrUnknownNamespace is returned by Resolve for a name with no
// registered owner.
type ErrUnknownNamespace struct{ Name string }

func (e ErrUnknownNamespace) Error() string {
	return fmt.Sprintf("namespace: %q is not registered", e.Name)
}

// Resolve looks up a namespace by name.
func (r *Registry) Resolve(name string) (*Namespace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ns, ok := r.namespaces[name]
	if !ok {
		return nil, ErrUnknownNamespace{Name: name}
	}
	return ns, nil
}
