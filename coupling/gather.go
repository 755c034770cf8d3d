package coupling

import (
	"fmt"

	"github.com/scicoupler/fcoupler/assert"
	"github.com/scicoupler/fcoupler/storage"
)

// gatherEngine runs a many-to-one plan: every rank in
// NspSend packs its locally-owned (globalID, value) tuples and Gatherv's
// them to the sole receiver, who writes each decoded value straight into
// its array at the position named by the global id, since it owns the
// whole domain and needs no local-to-global indirection.
type gatherEngine struct{}

func (gatherEngine) execute(p *TransferPlan) error {
	if p.Group == nil {
		return nil
	}

	var mySend []byte
	if p.sendSocket != nil {
		mySend = packSendSide(p)
	}

	counts, err := gatherCounts(p, len(mySend))
	if err != nil {
		return err
	}

	recvBuf, err := p.Group.Gatherv(mySend, counts, p.GatherRoot)
	if err != nil {
		return fmt.Errorf("coupling: gather %q: %w", p.Name, err)
	}
	if recvBuf == nil {
		return nil // not the root
	}

	elemSize := elementSize(p.SendStride)
	totRecvCount := (len(recvBuf) / elemSize) * p.RecvStride
	assert.True(totRecvCount == p.RecvArraySize, fmt.Sprintf("coupling: gather %q: received %d floats but receive array holds %d", p.Name, totRecvCount, p.RecvArraySize))

	numIDs := p.RecvArraySize / p.RecvStride
	out := make([]float64, p.RecvStride)
	for off := 0; off < len(recvBuf); off += elemSize {
		id, values := unpackElement(recvBuf[off:off+elemSize], p.SendStride)
		assert.True(int(id) < numIDs, fmt.Sprintf("coupling: gather %q: global id %d out of range [0,%d)", p.Name, id, numIDs))
		p.Transformer.Transform(values, out)
		writeByGlobalID(p.recvSocket, id, p.RecvStride, out)
	}
	return nil
}

// countLocal reports how many elements and bytes this rank will send for
// p, zero on ranks that hold no send socket for it.
func (gatherEngine) countLocal(p *TransferPlan) (elems, bytes int) {
	if p.sendSocket == nil {
		return 0, 0
	}
	n := p.sendDofs.Size()
	return n, n * elementSize(p.SendStride)
}

func packSendSide(p *TransferPlan) []byte {
	n := p.sendDofs.Size()
	buf := make([]byte, 0, n*elementSize(p.SendStride))
	for i := 0; i < n; i++ {
		id := p.sendDofs.GlobalID(i)
		values := p.sendSocket.ReadAt(i, p.SendStride)
		buf = packElement(buf, id, values)
	}
	return buf
}

// gatherCounts computes each Group member's byte contribution by
// max-reducing a per-rank indicator vector, the same Allreduce-max the
// builder uses to agree on strides and root ranks: every rank
// contributes its own count at its own Group position and zero
// elsewhere, and the max-reduction assembles the full counts vector
// without anyone needing to know the others' local sizes in advance.
func gatherCounts(p *TransferPlan, myLen int) ([]int, error) {
	size := p.Group.Size()
	vec := make([]int64, size)
	vec[p.Group.Rank()] = int64(myLen)
	agreed, err := p.Group.AllreduceMaxI64(vec)
	if err != nil {
		return nil, err
	}
	counts := make([]int, size)
	for i, v := range agreed {
		counts[i] = int(v)
	}
	return counts, nil
}

func writeByGlobalID(sock storage.Socket, id uint64, stride int, values []float64) {
	sock.WriteAt(int(id), stride, values)
}
