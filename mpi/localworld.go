package mpi

import (
	"sync"

	"github.com/scicoupler/fcoupler/plan"
)

// NewLocalWorld builds size Comm instances that perform real collective
// semantics (counts, displacements, max-reduction, root selection) against
// each other through shared in-process state, one Comm per simulated rank.
//
// This is how this module's own tests exercise gather/scatter correctness
// without a real MPI runtime: spawn one goroutine per returned Comm, each
// driving a coupling.Driver, and assert on the resulting buffers. The
// pattern is grounded on the collective-operation-per-goroutine style used
// to unit test distributed collectives without a real cluster (each
// logical rank gets its own goroutine and its own view of a shared
// in-process communicator).
func NewLocalWorld(size int) []Comm {
	if size <= 0 {
		return nil
	}
	w := &localWorld{size: size, calls: make(map[int]*callState)}
	out := make([]Comm, size)
	for r := 0; r < size; r++ {
		out[r] = &localComm{world: w, rank: r, size: size}
	}
	return out
}

// localWorld is the shared state behind a group of localComm values. Each
// logical collective call is identified by the caller's local sequence
// number: because every rank of an SPMD program issues the same sequence
// of collective calls in the same order, ranks calling their Nth
// collective all rendezvous at the same *callState without needing any
// cross-rank synchronization to agree on an ID.
type localWorld struct {
	mu    sync.Mutex
	size  int
	calls map[int]*callState
}

type callState struct {
	mu      sync.Mutex
	cond    *sync.Cond
	size    int
	arrived int
	payload []interface{}

	sharedOnce sync.Once
	shared     interface{}
}

func (w *localWorld) call(seq, size int) *callState {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.calls[seq]
	if !ok {
		c = &callState{size: size, payload: make([]interface{}, size)}
		c.cond = sync.NewCond(&c.mu)
		w.calls[seq] = c
	}
	return c
}

// rendezvous blocks rank until every one of size participants has
// contributed, then returns every contribution indexed by rank.
func (w *localWorld) rendezvous(seq, rank, size int, contribution interface{}) []interface{} {
	c := w.call(seq, size)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payload[rank] = contribution
	c.arrived++
	if c.arrived == c.size {
		c.cond.Broadcast()
	} else {
		for c.arrived < c.size {
			c.cond.Wait()
		}
	}
	return c.payload
}

// rendezvousShared is like rendezvous, but additionally computes a single
// shared value exactly once (by whichever rank happens to run the Once
// first, after every rank has contributed) and hands that same value back
// to every rank. Split uses this to make sure every member of a new group
// ends up sharing one *localWorld instance rather than one each.
func (w *localWorld) rendezvousShared(seq, rank, size int, contribution interface{}, compute func([]interface{}) interface{}) interface{} {
	c := w.call(seq, size)
	c.mu.Lock()
	c.payload[rank] = contribution
	c.arrived++
	if c.arrived == c.size {
		c.cond.Broadcast()
	} else {
		for c.arrived < c.size {
			c.cond.Wait()
		}
	}
	payload := c.payload
	c.mu.Unlock()

	c.sharedOnce.Do(func() {
		c.shared = compute(payload)
	})
	return c.shared
}

type localComm struct {
	world *localWorld
	rank  int
	size  int
	seq   int
}

func (c *localComm) nextSeq() int {
	c.seq++
	return c.seq
}

func (c *localComm) Rank() int { return c.rank }
func (c *localComm) Size() int { return c.size }

type splitVote struct {
	color, key, rank int
}

type splitMember struct {
	key, rank int
}

type splitGroup struct {
	members []splitMember
	world   *localWorld
}

func (c *localComm) Split(color, key int) (Comm, error) {
	shared := c.world.rendezvousShared(c.nextSeq(), c.rank, c.size, splitVote{color, key, c.rank},
		func(raw []interface{}) interface{} {
			groups := make(map[int]*splitGroup)
			for _, v := range raw {
				vv := v.(splitVote)
				if vv.color < 0 {
					continue
				}
				g := groups[vv.color]
				if g == nil {
					g = &splitGroup{}
					groups[vv.color] = g
				}
				g.members = append(g.members, splitMember{key: vv.key, rank: vv.rank})
			}
			for _, g := range groups {
				sortSplitMembers(g.members)
				g.world = &localWorld{size: len(g.members), calls: make(map[int]*callState)}
			}
			return groups
		})

	groups := shared.(map[int]*splitGroup)
	if color < 0 {
		return nil, nil
	}
	g := groups[color]
	for newRank, m := range g.members {
		if m.rank == c.rank {
			return &localComm{world: g.world, rank: newRank, size: len(g.members)}, nil
		}
	}
	return nil, nil // unreachable: c.rank is always a member of its own group
}

func sortSplitMembers(members []splitMember) {
	for i := 1; i < len(members); i++ {
		for j := i; j > 0; j-- {
			a, b := members[j-1], members[j]
			if a.key > b.key || (a.key == b.key && a.rank > b.rank) {
				members[j-1], members[j] = members[j], members[j-1]
			} else {
				break
			}
		}
	}
}

func (c *localComm) Barrier() error {
	c.world.rendezvous(c.nextSeq(), c.rank, c.size, struct{}{})
	return nil
}

func (c *localComm) AllreduceMaxI64(in []int64) ([]int64, error) {
	raw := c.world.rendezvous(c.nextSeq(), c.rank, c.size, in)
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]int64, len(in))
	copy(out, in)
	for _, v := range raw {
		vv := v.([]int64)
		if len(vv) != len(in) {
			return nil, ErrSizeMismatch{Op: "AllreduceMaxI64", Expected: len(in), Got: len(vv)}
		}
		for i, x := range vv {
			if x > out[i] {
				out[i] = x
			}
		}
	}
	return out, nil
}

func (c *localComm) Bcast(buf []byte, root int) error {
	if root < 0 || root >= c.size {
		return ErrOutOfRange{Rank: root, Size: c.size}
	}
	raw := c.world.rendezvous(c.nextSeq(), c.rank, c.size, buf)
	rootBuf := raw[root].([]byte)
	if c.rank != root {
		if len(buf) != len(rootBuf) {
			return ErrSizeMismatch{Op: "Bcast", Expected: len(rootBuf), Got: len(buf)}
		}
		copy(buf, rootBuf)
	}
	return nil
}

func (c *localComm) Gatherv(send []byte, counts []int, root int) ([]byte, error) {
	if root < 0 || root >= c.size {
		return nil, ErrOutOfRange{Rank: root, Size: c.size}
	}
	if len(counts) != c.size {
		return nil, ErrSizeMismatch{Op: "Gatherv counts", Expected: c.size, Got: len(counts)}
	}
	if len(send) != counts[c.rank] {
		return nil, ErrSizeMismatch{Op: "Gatherv send", Expected: counts[c.rank], Got: len(send)}
	}
	raw := c.world.rendezvous(c.nextSeq(), c.rank, c.size, send)
	if c.rank != root {
		return nil, nil
	}
	displs := plan.PrefixSumDispls(counts)
	var total int
	for _, n := range counts {
		total += n
	}
	out := make([]byte, total)
	for r, v := range raw {
		vv := v.([]byte)
		copy(out[displs[r]:displs[r]+counts[r]], vv)
	}
	return out, nil
}
