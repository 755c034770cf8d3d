// Package mpi is the collective-communication substrate the coupler runs
// on top of: every blocking point of the coupler (Allreduce, Gatherv,
// Bcast, Barrier) is a method on the Comm interface defined here, wrapped
// behind an explicit context object so tests can inject a mock layer that
// records collective calls instead of a real communicator.
//
// Three implementations exist: a cgo binding to a real MPI library
// (build tag "mpi"), a single-rank stub used by default builds and by
// callers that just need the API surface without a real cluster, and an
// in-process multi-goroutine implementation used by this module's own
// tests to exercise the actual collective semantics (counts,
// displacements, root selection) without a real MPI runtime.
package mpi

import "fmt"

// Comm is the minimal MPI communicator surface the coupler needs.
//
// All methods must be called by every rank of the communicator; omitting
// a rank deadlocks the others, exactly as for real MPI collectives.
type Comm interface {
	Rank() int
	Size() int

	// Split partitions the communicator by color: ranks that pass the
	// same non-negative color end up together in the returned
	// communicator, ordered by key (ties broken by original rank). A
	// negative color means "not a member of the result"; Split returns
	// (nil, nil) for such ranks, mirroring MPI_UNDEFINED.
	//
	// Every rank of the parent communicator must call Split, including
	// ranks that will not belong to the result.
	Split(color, key int) (Comm, error)

	// Barrier blocks until every rank of the communicator has called it.
	Barrier() error

	// AllreduceMaxI64 returns the elementwise maximum of in across every
	// rank. len(in) must be identical on every rank.
	AllreduceMaxI64(in []int64) ([]int64, error)

	// Bcast fills buf with root's contents. On entry, buf must already be
	// sized to the number of bytes being broadcast on every rank (the
	// size itself is negotiated by a prior collective that announces
	// sizes before payloads are broadcast). On the root rank buf is left
	// unmodified and is the value sent.
	Bcast(buf []byte, root int) error

	// Gatherv gathers send from every rank into a single buffer on root,
	// at the offsets implied by the exclusive prefix sum of counts.
	// len(send) must equal counts[Rank()] on every rank. The return value
	// is nil on every rank but root.
	Gatherv(send []byte, counts []int, root int) ([]byte, error)
}

// ErrOutOfRange is returned when a rank argument is not a valid rank of
// the communicator it was passed to.
type ErrOutOfRange struct {
	Rank int
	Size int
}

func (e ErrOutOfRange) Error() string {
	return fmt.Sprintf("mpi: rank %d out of range for communicator of size %d", e.Rank, e.Size)
}

// ErrSizeMismatch is returned when a collective's inputs disagree on a
// length that must be identical across ranks.
type ErrSizeMismatch struct {
	Op       string
	Expected int
	Got      int
}

func (e ErrSizeMismatch) Error() string {
	return fmt.Sprintf("mpi: %s size mismatch: expected %d, got %d", e.Op, e.Expected, e.Got)
}
