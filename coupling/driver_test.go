package coupling

import (
	"sync"
	"testing"

	"github.com/scicoupler/fcoupler/mpi"
	"github.com/scicoupler/fcoupler/namespace"
	"github.com/scicoupler/fcoupler/plan"
	"github.com/scicoupler/fcoupler/rankgroup"
	"github.com/scicoupler/fcoupler/storage"
	"github.com/scicoupler/fcoupler/transform"
)

// newBuilder assembles a Builder backed by fresh, rank-private registries
// except for namespaces, whose ownership is shared configuration every
// rank agrees on up front.
func newBuilder(namespaces *namespace.Registry) *Builder {
	return &Builder{
		Namespaces:   namespaces,
		RankGroups:   rankgroup.NewRegistry(),
		Storage:      storage.NewRegistry(),
		Transformers: transform.NewRegistry(nil),
	}
}

func sharedNamespaces(send, recv plan.RankSet) *namespace.Registry {
	reg := namespace.NewRegistry()
	reg.Register(&namespace.Namespace{Name: "send", Ranks: send, PhysicalModel: "upstream"})
	reg.Register(&namespace.Namespace{Name: "recv", Ranks: recv, PhysicalModel: "downstream"})
	return reg
}

func TestGatherManyToOneStride3(t *testing.T) {
	// 4 send ranks, each owning one DOF; rank 0 also receives the whole
	// assembled domain, exercising a "gather 4->1 stride 3" scenario.
	const stride = 3
	comms := mpi.NewLocalWorld(4)
	namespaces := sharedNamespaces(plan.RankSet{0, 1, 2, 3}, plan.RankSet{0})

	var wg sync.WaitGroup
	recvArrays := make([]float64, 4*stride)

	for i, c := range comms {
		wg.Add(1)
		go func(i int, c mpi.Comm) {
			defer wg.Done()
			b := newBuilder(namespaces)
			sendDS := b.Storage.Namespace("send")
			sendDS.PutDofHandle("states", []uint64{uint64(i)}, nil, 1)
			sendDS.PutDense("field", []float64{float64(i) * 10, float64(i)*10 + 1, float64(i)*10 + 2})

			if i == 0 {
				recvDS := b.Storage.Namespace("recv")
				recvDS.PutDofHandle("states", []uint64{0, 1, 2, 3}, nil, 1)
				recvDS.PutDense("field", recvArrays)
			}

			plans, err := b.Build(c, []string{"send_field>recv_field"}, nil, nil)
			if err != nil {
				t.Errorf("rank %d: build: %v", i, err)
				return
			}
			d := &Driver{}
			if err := d.Execute(c, plans); err != nil {
				t.Errorf("rank %d: execute: %v", i, err)
			}
		}(i, c)
	}
	wg.Wait()

	for id := 0; id < 4; id++ {
		want := []float64{float64(id) * 10, float64(id)*10 + 1, float64(id)*10 + 2}
		got := recvArrays[id*stride : id*stride+stride]
		for c := 0; c < stride; c++ {
			if got[c] != want[c] {
				t.Errorf("id %d component %d: got %v, want %v", id, c, got, want)
			}
		}
	}
}

func TestScatterOneToManyStride2(t *testing.T) {
	// One sender owning the whole 3-id domain, three receivers each
	// owning a single id: a "scatter 1->3 stride 2" scenario.
	const stride = 2
	comms := mpi.NewLocalWorld(4)
	namespaces := sharedNamespaces(plan.RankSet{0}, plan.RankSet{1, 2, 3})

	var wg sync.WaitGroup
	recvFields := make([][]float64, 4)

	for i, c := range comms {
		wg.Add(1)
		go func(i int, c mpi.Comm) {
			defer wg.Done()
			b := newBuilder(namespaces)

			if i == 0 {
				sendDS := b.Storage.Namespace("send")
				sendDS.PutDofHandle("states", []uint64{0, 1, 2}, nil, 1)
				sendDS.PutDense("field", []float64{1, 2, 3, 4, 5, 6})
			} else {
				recvDS := b.Storage.Namespace("recv")
				myID := uint64(i - 1)
				recvDS.PutDofHandle("states", []uint64{myID}, nil, 1)
				recvFields[i] = make([]float64, stride)
				recvDS.PutDense("field", recvFields[i])
			}

			plans, err := b.Build(c, []string{"send_field>recv_field"}, nil, nil)
			if err != nil {
				t.Errorf("rank %d: build: %v", i, err)
				return
			}
			d := &Driver{}
			if err := d.Execute(c, plans); err != nil {
				t.Errorf("rank %d: execute: %v", i, err)
			}
		}(i, c)
	}
	wg.Wait()

	want := [][]float64{nil, {1, 2}, {3, 4}, {5, 6}}
	for i := 1; i <= 3; i++ {
		got := recvFields[i]
		if got[0] != want[i][0] || got[1] != want[i][1] {
			t.Errorf("rank %d: got %v, want %v", i, got, want[i])
		}
	}
}

func TestScatterWithTruncateTransform(t *testing.T) {
	// One sender with a 5-wide conservative variable set, receivers
	// consuming a 4-wide primitive-style truncation.
	comms := mpi.NewLocalWorld(3)
	namespaces := sharedNamespaces(plan.RankSet{0}, plan.RankSet{1, 2})

	var wg sync.WaitGroup
	recvFields := make([][]float64, 3)

	for i, c := range comms {
		wg.Add(1)
		go func(i int, c mpi.Comm) {
			defer wg.Done()
			b := newBuilder(namespaces)
			b.Transformers.Register("truncate54", func(send, recv int) (transform.VarSetTransformer, error) {
				return transform.NewTruncate(send, recv), nil
			})

			if i == 0 {
				sendDS := b.Storage.Namespace("send")
				sendDS.PutDofHandle("states", []uint64{0, 1}, nil, 1)
				sendDS.PutDense("field", []float64{
					1, 2, 3, 4, 5,
					6, 7, 8, 9, 10,
				})
			} else {
				recvDS := b.Storage.Namespace("recv")
				myID := uint64(i - 1)
				recvDS.PutDofHandle("states", []uint64{myID}, nil, 1)
				recvFields[i] = make([]float64, 4)
				recvDS.PutDense("field", recvFields[i])
			}

			plans, err := b.Build(c, []string{"send_field>recv_field"}, nil, []string{"truncate54"})
			if err != nil {
				t.Errorf("rank %d: build: %v", i, err)
				return
			}
			d := &Driver{}
			if err := d.Execute(c, plans); err != nil {
				t.Errorf("rank %d: execute: %v", i, err)
			}
		}(i, c)
	}
	wg.Wait()

	if got := recvFields[1]; got[0] != 1 || got[3] != 4 {
		t.Errorf("rank 1: got %v", got)
	}
	if got := recvFields[2]; got[0] != 6 || got[3] != 9 {
		t.Errorf("rank 2: got %v", got)
	}
}

func TestManyToManyRejectedAtExecute(t *testing.T) {
	comms := mpi.NewLocalWorld(4)
	namespaces := sharedNamespaces(plan.RankSet{0, 1}, plan.RankSet{2, 3})

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i, c := range comms {
		wg.Add(1)
		go func(i int, c mpi.Comm) {
			defer wg.Done()
			b := newBuilder(namespaces)
			if i < 2 {
				ds := b.Storage.Namespace("send")
				ds.PutDofHandle("states", []uint64{uint64(i)}, nil, 1)
				ds.PutDense("field", []float64{1})
			} else {
				ds := b.Storage.Namespace("recv")
				ds.PutDofHandle("states", []uint64{uint64(i - 2)}, nil, 1)
				ds.PutDense("field", []float64{0})
			}
			plans, err := b.Build(c, []string{"send_field>recv_field"}, nil, nil)
			if err != nil {
				t.Errorf("rank %d: build: %v", i, err)
				return
			}
			d := &Driver{}
			errs[i] = d.Execute(c, plans)
		}(i, c)
	}
	wg.Wait()

	for i, err := range errs {
		if _, ok := err.(ErrManyToMany); !ok {
			t.Errorf("rank %d: got %v, want ErrManyToMany", i, err)
		}
	}
}
