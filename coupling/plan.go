package coupling

import (
	"sync"

	"github.com/scicoupler/fcoupler/mpi"
	"github.com/scicoupler/fcoupler/storage"
	"github.com/scicoupler/fcoupler/transform"
)

// TransferPlan is the built, ready-to-execute descriptor for one
// configured transfer. It is built once (Builder.Build) and
// executed repeatedly (Driver.Execute) without rebuilding, since the
// expensive parts — namespace resolution, subgroup creation, stride
// agreement — do not change across coupling iterations.
type TransferPlan struct {
	Name string // the raw spec string, used as the plan's identity for logging and metrics labels

	ConnKind ConnKind

	NspSend, NspRecv       string
	SendSocket, RecvSocket string // compound "namespace_socket" names

	NbRanksSend, NbRanksRecv int

	SendStride, RecvStride int

	// RecvArraySize is the total float count of this rank's receive
	// socket (0 if this rank holds no receive socket for the plan). A
	// gather's sole receiver owns the whole domain, so this is the global
	// array size; checked against the total element count actually
	// gathered (coupling.gatherEngine.execute's "totRecvCount == arraySize"
	// assertion).
	RecvArraySize int

	Group mpi.Comm // this rank's view of the plan's dedicated subgroup; nil if this rank does not participate

	// GatherRoot and ScatterRoot are Group-local ranks: the sole receiver
	// for a gather (Gatherv root) and the sole sender for a scatter
	// (Bcast root), respectively. Both are resolved once at build time
	// regardless of topology, since a one-to-one plan uses ScatterRoot
	// and a one-to-many or many-to-one plan only ever needs one of them.
	GatherRoot  int
	ScatterRoot int

	Transformer transform.VarSetTransformer

	// Local socket bindings. Exactly the ones relevant to this rank's
	// role(s) in the plan are non-nil; a rank can hold both a send and a
	// recv binding when its namespace appears on both sides of distinct
	// plans that happen to share ranks, or even the same plan run
	// bidirectionally.
	sendSocket storage.Socket // set on ranks in NspSend
	sendDofs   *storage.DofHandle // this rank's local portion of the send-side DOF handle

	recvSocket storage.Socket      // set on ranks in NspRecv
	recvDofs   *storage.DofHandle // this rank's local portion of the recv-side DOF handle (nil for gather, where the sole receiver owns the whole domain and indexes recvSocket by global id directly)

	dofMapOnce    sync.Once
	globalToLocal map[uint64]int // built lazily on first scatter execution
}

// localToGlobalMap builds (once) the inverse of recvDofs' global id list, so
// the scatter engine can translate an incoming global id into this
// rank's local position in O(1).
func (p *TransferPlan) localToGlobalMap() map[uint64]int {
	p.dofMapOnce.Do(func() {
		p.globalToLocal = make(map[uint64]int, p.recvDofs.Size())
		for i := 0; i < p.recvDofs.Size(); i++ {
			p.globalToLocal[p.recvDofs.GlobalID(i)] = i
		}
	})
	return p.globalToLocal
}

// Topology classifies a plan's sender/receiver cardinality, which
// decides which engine Driver.Execute dispatches to.
type Topology int

const (
	OneToOne Topology = iota
	OneToMany
	ManyToOne
	ManyToMany
)

func (p *TransferPlan) Topology() Topology {
	switch {
	case p.NbRanksSend == 1 && p.NbRanksRecv == 1:
		return OneToOne
	case p.NbRanksSend == 1 && p.NbRanksRecv > 1:
		return OneToMany
	case p.NbRanksSend > 1 && p.NbRanksRecv == 1:
		return ManyToOne
	default:
		return ManyToMany
	}
}
