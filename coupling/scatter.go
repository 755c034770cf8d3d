package coupling

import (
	"encoding/binary"
	"fmt"

	"github.com/scicoupler/fcoupler/log"
	"github.com/scicoupler/fcoupler/metrics"
)

// scatterEngine runs a one-to-many (or one-to-one) plan:
// the sole sender broadcasts every locally-owned (globalID, value) tuple
// it holds to the whole dedicated subgroup, and each receiver keeps only
// the tuples whose global id it owns, translating the id to a local
// position through a lazily-built map (TransferPlan.localToGlobalMap).
type scatterEngine struct {
	Metrics *metrics.Collector
	Log     *log.Logger
}

// countLocal reports how many elements and bytes this rank will send for
// p, zero on ranks that hold no send socket for it.
func (scatterEngine) countLocal(p *TransferPlan) (elems, bytes int) {
	if p.sendSocket == nil {
		return 0, 0
	}
	n := p.sendDofs.Size()
	return n, n * elementSize(p.SendStride)
}

func (e scatterEngine) execute(p *TransferPlan) error {
	if p.Group == nil {
		return nil
	}

	var payload []byte
	if p.sendSocket != nil {
		payload = packSendSide(p)
	}

	payload, err := broadcastPayload(p.Group, p.ScatterRoot, payload)
	if err != nil {
		return fmt.Errorf("coupling: scatter %q: %w", p.Name, err)
	}

	if p.recvSocket == nil {
		return nil // not a receiver of this plan
	}

	dofMap := p.localToGlobalMap()
	elemSize := elementSize(p.SendStride)
	out := make([]float64, p.RecvStride)
	var dropped int
	for off := 0; off < len(payload); off += elemSize {
		id, values := unpackElement(payload[off:off+elemSize], p.SendStride)
		localPos, ok := dofMap[id]
		if !ok {
			dropped++
			continue
		}
		p.Transformer.Transform(values, out)
		p.recvSocket.WriteAt(localPos, p.RecvStride, out)
	}
	if dropped > 0 {
		if e.Log != nil {
			e.Log.Warnf("coupling: scatter %q dropped %d ids with no local owner", p.Name, dropped)
		}
		if e.Metrics != nil {
			e.Metrics.DroppedIDs.WithLabelValues(p.Name).Add(float64(dropped))
		}
	}
	return nil
}

// broadcastPayload Bcasts a variable-length buffer: the length travels
// first in its own fixed-size Bcast, since MPI_Bcast (and the Comm it
// models) requires every participant to agree on a buffer size before
// the call.
func broadcastPayload(group interface {
	Rank() int
	Bcast(buf []byte, root int) error
}, root int, payload []byte) ([]byte, error) {
	var lenBuf [8]byte
	if group.Rank() == root {
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(payload)))
	}
	if err := group.Bcast(lenBuf[:], root); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint64(lenBuf[:])

	buf := payload
	if group.Rank() != root {
		buf = make([]byte, n)
	}
	if err := group.Bcast(buf, root); err != nil {
		return nil, err
	}
	return buf, nil
}
