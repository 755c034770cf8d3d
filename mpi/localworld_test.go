package mpi

import (
	"sync"
	"testing"
)

func TestLocalWorldAllreduceMax(t *testing.T) {
	comms := NewLocalWorld(4)
	var wg sync.WaitGroup
	results := make([][]int64, len(comms))
	for i, c := range comms {
		wg.Add(1)
		go func(i int, c Comm) {
			defer wg.Done()
			in := []int64{int64(i), int64(-i)}
			out, err := c.AllreduceMaxI64(in)
			if err != nil {
				t.Errorf("rank %d: %v", i, err)
				return
			}
			results[i] = out
		}(i, c)
	}
	wg.Wait()
	for i, r := range results {
		if r[0] != 3 || r[1] != 0 {
			t.Errorf("rank %d: got %v, want [3 0]", i, r)
		}
	}
}

func TestLocalWorldBcast(t *testing.T) {
	comms := NewLocalWorld(3)
	var wg sync.WaitGroup
	results := make([][]byte, len(comms))
	for i, c := range comms {
		wg.Add(1)
		go func(i int, c Comm) {
			defer wg.Done()
			buf := make([]byte, 4)
			if i == 1 {
				copy(buf, []byte{9, 8, 7, 6})
			}
			if err := c.Bcast(buf, 1); err != nil {
				t.Errorf("rank %d: %v", i, err)
				return
			}
			results[i] = buf
		}(i, c)
	}
	wg.Wait()
	want := []byte{9, 8, 7, 6}
	for i, r := range results {
		if string(r) != string(want) {
			t.Errorf("rank %d: got %v, want %v", i, r, want)
		}
	}
}

func TestLocalWorldGatherv(t *testing.T) {
	comms := NewLocalWorld(3)
	counts := []int{1, 2, 3}
	var wg sync.WaitGroup
	var rootResult []byte
	for i, c := range comms {
		wg.Add(1)
		go func(i int, c Comm) {
			defer wg.Done()
			send := make([]byte, counts[i])
			for j := range send {
				send[j] = byte(i*10 + j)
			}
			out, err := c.Gatherv(send, counts, 2)
			if err != nil {
				t.Errorf("rank %d: %v", i, err)
				return
			}
			if i == 2 {
				rootResult = out
			} else if out != nil {
				t.Errorf("rank %d: expected nil result, got %v", i, out)
			}
		}(i, c)
	}
	wg.Wait()
	want := []byte{0, 10, 11, 20, 21, 22}
	if string(rootResult) != string(want) {
		t.Errorf("got %v, want %v", rootResult, want)
	}
}

func TestLocalWorldSplit(t *testing.T) {
	comms := NewLocalWorld(4)
	var wg sync.WaitGroup
	subSizes := make([]int, len(comms))
	subRanks := make([]int, len(comms))
	for i, c := range comms {
		wg.Add(1)
		go func(i int, c Comm) {
			defer wg.Done()
			color := i % 2
			sub, err := c.Split(color, i)
			if err != nil {
				t.Errorf("rank %d: %v", i, err)
				return
			}
			subSizes[i] = sub.Size()
			subRanks[i] = sub.Rank()
		}(i, c)
	}
	wg.Wait()
	for i := range comms {
		if subSizes[i] != 2 {
			t.Errorf("rank %d: sub size = %d, want 2", i, subSizes[i])
		}
	}
	if subRanks[0] != 0 || subRanks[2] != 1 {
		t.Errorf("even group ranks: got [%d %d], want [0 1]", subRanks[0], subRanks[2])
	}
	if subRanks[1] != 0 || subRanks[3] != 1 {
		t.Errorf("odd group ranks: got [%d %d], want [0 1]", subRanks[1], subRanks[3])
	}
}

func TestLocalWorldSplitExcludes(t *testing.T) {
	comms := NewLocalWorld(3)
	var wg sync.WaitGroup
	subs := make([]Comm, len(comms))
	for i, c := range comms {
		wg.Add(1)
		go func(i int, c Comm) {
			defer wg.Done()
			color := -1
			if i != 1 {
				color = 0
			}
			sub, err := c.Split(color, i)
			if err != nil {
				t.Errorf("rank %d: %v", i, err)
			}
			subs[i] = sub
		}(i, c)
	}
	wg.Wait()
	if subs[1] != nil {
		t.Errorf("excluded rank should get a nil comm, got %v", subs[1])
	}
	if subs[0] == nil || subs[2] == nil {
		t.Fatalf("included ranks should get a comm")
	}
	if subs[0].Size() != 2 {
		t.Errorf("included group size = %d, want 2", subs[0].Size())
	}
}
