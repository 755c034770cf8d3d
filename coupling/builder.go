package coupling

import (
	"fmt"
	"time"

	"github.com/scicoupler/fcoupler/assert"
	"github.com/scicoupler/fcoupler/log"
	"github.com/scicoupler/fcoupler/metrics"
	"github.com/scicoupler/fcoupler/mpi"
	"github.com/scicoupler/fcoupler/namespace"
	"github.com/scicoupler/fcoupler/rankgroup"
	"github.com/scicoupler/fcoupler/storage"
	"github.com/scicoupler/fcoupler/transform"
)

// Builder turns a configured list of transfer descriptor strings into
// ready-to-execute TransferPlans. It is the single point
// where the namespace registry, rank-group registry, data storage
// gateway and transformer registry are all consulted together.
type Builder struct {
	Namespaces   *namespace.Registry
	RankGroups   *rankgroup.Registry
	Storage      *storage.Registry
	Transformers *transform.Registry
	Metrics      *metrics.Collector // optional
	Log          *log.Logger        // optional, defaults to log.Default()
}

func (b *Builder) logger() *log.Logger {
	if b.Log != nil {
		return b.Log
	}
	return log.Default()
}

// Build constructs one TransferPlan per entry of specs, couplingComm
// being the communicator every rank participating in any transfer is a
// member of. connKinds and transformerNames must each be either empty
// (meaning all plans default to "state" connectivity and the identity
// transformer) or exactly len(specs) long.
func (b *Builder) Build(couplingComm mpi.Comm, specs, connKinds, transformerNames []string) ([]*TransferPlan, error) {
	if len(connKinds) != 0 && len(connKinds) != len(specs) {
		return nil, fmt.Errorf("coupling: %d connectivity kinds for %d transfer specs", len(connKinds), len(specs))
	}
	if len(transformerNames) != 0 && len(transformerNames) != len(specs) {
		return nil, fmt.Errorf("coupling: %d transformer names for %d transfer specs", len(transformerNames), len(specs))
	}

	plans := make([]*TransferPlan, 0, len(specs))
	for i, raw := range specs {
		start := time.Now()
		connKindStr := "state"
		if len(connKinds) != 0 {
			connKindStr = connKinds[i]
		}
		var transformerName string
		if len(transformerNames) != 0 {
			transformerName = transformerNames[i]
		}
		p, err := b.buildOne(couplingComm, raw, connKindStr, transformerName)
		if err != nil {
			return nil, fmt.Errorf("coupling: building plan %q: %w", raw, err)
		}
		if b.Metrics != nil {
			b.Metrics.PlanBuildSeconds.WithLabelValues(raw).Observe(time.Since(start).Seconds())
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (b *Builder) buildOne(couplingComm mpi.Comm, raw, connKindStr, transformerName string) (*TransferPlan, error) {
	spec, err := ParseTransferSpec(raw)
	if err != nil {
		return nil, err
	}
	connKind, err := ParseConnKind(connKindStr)
	if err != nil {
		return nil, err
	}

	nsSend, err := b.Namespaces.Resolve(spec.SendNamespace)
	if err != nil {
		return nil, err
	}
	nsRecv, err := b.Namespaces.Resolve(spec.RecvNamespace)
	if err != nil {
		return nil, err
	}

	myRank := couplingComm.Rank()
	iSend := nsSend.Ranks.Contains(myRank)
	iRecv := nsRecv.Ranks.Contains(myRank)

	// Every rank resolves both namespaces from the same configuration, so
	// the union of their rank sets is already fully known locally: no
	// collective is needed to agree on it, unlike the stride and root
	// values below which genuinely depend on what each rank holds.
	unionRanks := nsSend.Ranks.Union(nsRecv.Ranks)

	group, err := b.RankGroups.CreateSubgroup(couplingComm, raw, unionRanks, true)
	if err != nil {
		return nil, err
	}

	p := &TransferPlan{
		Name:        raw,
		ConnKind:    connKind,
		NspSend:     spec.SendNamespace,
		NspRecv:     spec.RecvNamespace,
		SendSocket:  spec.SendSocket,
		RecvSocket:  spec.RecvSocket,
		NbRanksSend: len(nsSend.Ranks),
		NbRanksRecv: len(nsRecv.Ranks),
		Group:       group,
	}
	assert.True(p.NbRanksSend > 0, fmt.Sprintf("coupling: plan %q: namespace %q has no ranks", raw, spec.SendNamespace))
	assert.True(p.NbRanksRecv > 0, fmt.Sprintf("coupling: plan %q: namespace %q has no ranks", raw, spec.RecvNamespace))

	var localSendStride, localRecvStride int
	if iSend {
		sock, dofs, stride, _, err := b.resolveSide(spec.SendNamespace, spec.SendSocket, connKind)
		if err != nil {
			return nil, fmt.Errorf("send side: %w", err)
		}
		p.sendSocket, p.sendDofs, localSendStride = sock, dofs, stride
	}
	if iRecv {
		sock, dofs, stride, arraySize, err := b.resolveSide(spec.RecvNamespace, spec.RecvSocket, connKind)
		if err != nil {
			return nil, fmt.Errorf("recv side: %w", err)
		}
		p.recvSocket, localRecvStride = sock, stride
		p.RecvArraySize = arraySize
		// A gather's sole receiver owns the whole global domain and
		// indexes recvSocket by global id directly; it has no use for a
		// global-to-local map, so recvDofs is only kept for the scatter
		// path (one-to-one and one-to-many).
		if t := p.Topology(); t == OneToOne || t == OneToMany {
			p.recvDofs = dofs
		}
	}

	if group != nil {
		groupSendRank, groupRecvRank := int64(-1), int64(-1)
		if iSend {
			groupSendRank = int64(group.Rank())
		}
		if iRecv {
			groupRecvRank = int64(group.Rank())
		}
		agreed, err := group.AllreduceMaxI64([]int64{
			int64(localSendStride), int64(localRecvStride), groupSendRank, groupRecvRank,
		})
		if err != nil {
			return nil, fmt.Errorf("agreeing strides: %w", err)
		}
		p.SendStride, p.RecvStride = int(agreed[0]), int(agreed[1])
		p.ScatterRoot, p.GatherRoot = int(agreed[2]), int(agreed[3])
		assert.True(p.SendStride >= 1, fmt.Sprintf("coupling: plan %q: agreed send stride %d < 1", raw, p.SendStride))
		assert.True(p.RecvStride >= 1, fmt.Sprintf("coupling: plan %q: agreed recv stride %d < 1", raw, p.RecvStride))
	}

	tr, err := b.Transformers.Get(transformerName, p.SendStride, p.RecvStride)
	if err != nil {
		return nil, err
	}
	assert.True(tr.InWidth() == p.SendStride, fmt.Sprintf("coupling: transformer %q inWidth %d != plan %q sendStride %d", tr.Name(), tr.InWidth(), raw, p.SendStride))
	assert.True(tr.OutWidth() == p.RecvStride, fmt.Sprintf("coupling: transformer %q outWidth %d != plan %q recvStride %d", tr.Name(), tr.OutWidth(), raw, p.RecvStride))
	p.Transformer = tr

	if p.Topology() == ManyToMany {
		b.logger().Warnf("coupling: plan %q is many-to-many (%d send ranks, %d recv ranks); this topology is rejected at execute time", raw, p.NbRanksSend, p.NbRanksRecv)
	}

	return p, nil
}

// resolveSide resolves a compound socket name within a namespace and
// derives its stride and total float count (arraySize), following one
// of two cases: a dense array's stride is its local length divided by
// the local DOF count and its arraySize is that length directly, while
// a socket that is itself a DOF handle carries its own width and its
// arraySize is numDofs*width.
func (b *Builder) resolveSide(nsName, compoundSocket string, connKind ConnKind) (storage.Socket, *storage.DofHandle, int, int, error) {
	dofs, err := b.resolveDofs(nsName, connKind)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	sock, err := b.Storage.Resolve(nsName, compoundSocket)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	switch s := sock.(type) {
	case *storage.DofHandle:
		return s, dofs, s.Width, s.Size() * s.Width, nil
	case *storage.DenseArray:
		if dofs.Size() == 0 {
			return sock, dofs, 0, len(s.Data), nil
		}
		return sock, dofs, len(s.Data) / dofs.Size(), len(s.Data), nil
	default:
		return nil, nil, 0, 0, fmt.Errorf("unsupported socket type %T", sock)
	}
}

func (b *Builder) resolveDofs(nsName string, connKind ConnKind) (*storage.DofHandle, error) {
	compound := nsName + "_" + connKind.dofHandleName()
	sock, err := b.Storage.Resolve(nsName, compound)
	if err != nil {
		return nil, err
	}
	dofs, ok := sock.(*storage.DofHandle)
	if !ok {
		return nil, fmt.Errorf("namespace %q socket %q is not a DOF handle", nsName, compound)
	}
	return dofs, nil
}
