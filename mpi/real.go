//go:build mpi

// Real MPI bindings, built only with `go build -tags mpi`. The default,
// tag-free build uses the single-rank stub in stub.go instead, so the
// module and its tests never require an MPI toolchain to be present.

package mpi

/*
#cgo LDFLAGS: -lmpi
#include <mpi.h>
#include <stdlib.h>

static MPI_Comm fcoupler_world(void) { return MPI_COMM_WORLD; }
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/scicoupler/fcoupler/plan"
)

type realComm struct {
	c C.MPI_Comm
}

var mpiInitialized bool

// World initializes MPI (idempotently) and returns the world communicator.
func World() (Comm, error) {
	if !mpiInitialized {
		if rc := C.MPI_Init(nil, nil); rc != C.MPI_SUCCESS {
			return nil, mpiError("MPI_Init", rc)
		}
		mpiInitialized = true
	}
	return realComm{c: C.fcoupler_world()}, nil
}

func mpiError(op string, rc C.int) error {
	var buf [C.MPI_MAX_ERROR_STRING]C.char
	var n C.int
	C.MPI_Error_string(rc, &buf[0], &n)
	return fmt.Errorf("mpi: %s failed: %s", op, C.GoStringN(&buf[0], n))
}

func (c realComm) Rank() int {
	var r C.int
	C.MPI_Comm_rank(c.c, &r)
	return int(r)
}

func (c realComm) Size() int {
	var s C.int
	C.MPI_Comm_size(c.c, &s)
	return int(s)
}

func (c realComm) Split(color, key int) (Comm, error) {
	splitColor := C.int(color)
	if color < 0 {
		splitColor = C.MPI_UNDEFINED
	}
	var out C.MPI_Comm
	if rc := C.MPI_Comm_split(c.c, splitColor, C.int(key), &out); rc != C.MPI_SUCCESS {
		return nil, mpiError("MPI_Comm_split", rc)
	}
	if color < 0 {
		return nil, nil
	}
	return realComm{c: out}, nil
}

func (c realComm) Barrier() error {
	if rc := C.MPI_Barrier(c.c); rc != C.MPI_SUCCESS {
		return mpiError("MPI_Barrier", rc)
	}
	return nil
}

func (c realComm) AllreduceMaxI64(in []int64) ([]int64, error) {
	out := make([]int64, len(in))
	if len(in) == 0 {
		return out, nil
	}
	rc := C.MPI_Allreduce(unsafe.Pointer(&in[0]), unsafe.Pointer(&out[0]),
		C.int(len(in)), C.MPI_LONG_LONG, C.MPI_MAX, c.c)
	if rc != C.MPI_SUCCESS {
		return nil, mpiError("MPI_Allreduce", rc)
	}
	return out, nil
}

func (c realComm) Bcast(buf []byte, root int) error {
	if len(buf) == 0 {
		return nil
	}
	rc := C.MPI_Bcast(unsafe.Pointer(&buf[0]), C.int(len(buf)), C.MPI_BYTE, C.int(root), c.c)
	if rc != C.MPI_SUCCESS {
		return mpiError("MPI_Bcast", rc)
	}
	return nil
}

func (c realComm) Gatherv(send []byte, counts []int, root int) ([]byte, error) {
	rank := c.Rank()
	size := c.Size()
	if len(counts) != size {
		return nil, ErrSizeMismatch{Op: "Gatherv counts", Expected: size, Got: len(counts)}
	}
	if len(send) != counts[rank] {
		return nil, ErrSizeMismatch{Op: "Gatherv send", Expected: counts[rank], Got: len(send)}
	}
	var recvPtr unsafe.Pointer
	var cCounts, cDispls []C.int
	var recv []byte
	if rank == root {
		displs := plan.PrefixSumDispls(counts)
		var total int
		for _, n := range counts {
			total += n
		}
		recv = make([]byte, total)
		if total > 0 {
			recvPtr = unsafe.Pointer(&recv[0])
		}
		cCounts = make([]C.int, size)
		cDispls = make([]C.int, size)
		for i := range counts {
			cCounts[i] = C.int(counts[i])
			cDispls[i] = C.int(displs[i])
		}
	}
	var sendPtr unsafe.Pointer
	if len(send) > 0 {
		sendPtr = unsafe.Pointer(&send[0])
	}
	var countsPtr, displsPtr *C.int
	if rank == root {
		countsPtr = &cCounts[0]
		displsPtr = &cDispls[0]
	}
	rc := C.MPI_Gatherv(sendPtr, C.int(len(send)), C.MPI_BYTE,
		recvPtr, countsPtr, displsPtr, C.MPI_BYTE, C.int(root), c.c)
	if rc != C.MPI_SUCCESS {
		return nil, mpiError("MPI_Gatherv", rc)
	}
	if rank != root {
		return nil, nil
	}
	return recv, nil
}
