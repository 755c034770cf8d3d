package storage

import (
	"strings"
	"sync"
)

// DataStorage is the per-namespace socket table. Socket names here are
// bare (the namespace prefix is stripped by Registry.Resolve before the
// lookup reaches a DataStorage), giving a (namespace, socketName) pair
// once the compound "namespace_socketName" spelling has been split.
type DataStorage struct {
	mu      sync.RWMutex
	sockets map[string]Socket
}

func newDataStorage() *DataStorage {
	return &DataStorage{sockets: make(map[string]Socket)}
}

// PutDense registers a dense-array socket under name.
func (s *DataStorage) PutDense(name string, data []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets[name] = &DenseArray{Data: data}
}

// PutDofHandle registers a global-DOF-handle socket under name.
func (s *DataStorage) PutDofHandle(name string, globalIDs []uint64, values []float64, width int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets[name] = &DofHandle{GlobalIDs: globalIDs, Values: values, Width: width}
}

// Put registers an already-constructed socket under name.
func (s *DataStorage) Put(name string, sock Socket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets[name] = sock
}

// Get looks up a bare socket name within this namespace's storage.
func (s *DataStorage) Get(name string) (Socket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sock, ok := s.sockets[name]
	return sock, ok
}

// Registry is the top-level DataStorage gateway: one DataStorage per
// namespace, looked up by the namespace name carried on a TransferPlan.
type Registry struct {
	mu  sync.RWMutex
	byNS map[string]*DataStorage
}

func NewRegistry() *Registry {
	return &Registry{byNS: make(map[string]*DataStorage)}
}

// Namespace returns the DataStorage for name, creating it on first use.
func (r *Registry) Namespace(name string) *DataStorage {
	r.mu.Lock()
	defer r.mu.Unlock()
	ds, ok := r.byNS[name]
	if !ok {
		ds = newDataStorage()
		r.byNS[name] = ds
	}
	return ds
}

// Resolve looks up a socket spelled in its external compound form,
// "namespace_socketName", scoped to the given namespace. The namespace
// prefix and its trailing underscore are stripped before the bare socket
// name reaches that namespace's DataStorage.
func (r *Registry) Resolve(namespace, compoundName string) (Socket, error) {
	bare := compoundName
	if prefix := namespace + "_"; strings.HasPrefix(compoundName, prefix) {
		bare = compoundName[len(prefix):]
	}
	ds := r.Namespace(namespace)
	sock, ok := ds.Get(bare)
	if !ok {
		return nil, ErrSocketNotFound{Namespace: namespace, Socket: bare}
	}
	return sock, nil
}
