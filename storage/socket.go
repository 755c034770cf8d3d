// Package storage is the DataStorage gateway: named access to
// per-namespace field arrays and DOF handles, local and global.
package storage

import "fmt"

// Socket is a named field buffer. It comes in two backing kinds:
// a local dense array of floating-point values, or a global DOF handle
// whose elements each carry a global id and a fixed-width value.
//
// Both kinds support reading and writing a stride-sized run of components
// at a given local position, which is all the gather and scatter engines
// need: the send side always reads by local position (the order the
// owning DOF handle enumerates its local DOFs in), and the receive side
// writes either by global id (gather, where the sole receiver owns the
// whole domain) or by local id (scatter, after the global-to-local map).
type Socket interface {
	ReadAt(pos, stride int) []float64
	WriteAt(pos, stride int, vals []float64)
}

// DenseArray is a flat, namespace-local field buffer: arraySize =
// numDofs*stride.
type DenseArray struct {
	Data []float64
}

func (d *DenseArray) ReadAt(pos, stride int) []float64 {
	return d.Data[pos*stride : pos*stride+stride]
}

func (d *DenseArray) WriteAt(pos, stride int, vals []float64) {
	copy(d.Data[pos*stride:pos*stride+stride], vals)
}

// DofHandle is a global DOF handle socket (e.g. "states" or "nodes"):
// GlobalIDs[i] is the global id of the i-th locally-owned DOF, and
// Values[i*Width:(i+1)*Width] is its value. Rather than a pair of
// separately-registered local/global sockets, a DofHandle bundles both
// arrays under one handle, since they are always read and written
// together.
type DofHandle struct {
	GlobalIDs []uint64
	Values    []float64
	Width     int
}

// Size is the number of locally-owned DOFs.
func (h *DofHandle) Size() int { return len(h.GlobalIDs) }

// GlobalID returns the global id of the i-th locally-owned DOF.
func (h *DofHandle) GlobalID(i int) uint64 { return h.GlobalIDs[i] }

func (h *DofHandle) ReadAt(pos, stride int) []float64 {
	if stride != h.Width {
		stride = h.Width
	}
	return h.Values[pos*h.Width : pos*h.Width+stride]
}

func (h *DofHandle) WriteAt(pos, stride int, vals []float64) {
	if stride != h.Width {
		stride = h.Width
	}
	copy(h.Values[pos*h.Width:pos*h.Width+stride], vals)
}

// ErrSocketNotFound is returned by Resolve when a namespace has no socket
// under the requested name.
type ErrSocketNotFound struct {
	Namespace string
	Socket    string
}

func (e ErrSocketNotFound) Error() string {
	return fmt.Sprintf("storage: no socket %q in namespace %q", e.Socket, e.Namespace)
}
