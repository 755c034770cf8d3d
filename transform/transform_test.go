package transform

import "testing"

func TestIdentity(t *testing.T) {
	tr := NewIdentity(3)
	out := make([]float64, 3)
	tr.Transform([]float64{1, 2, 3}, out)
	if out[0] != 1 || out[1] != 2 || out[2] != 3 {
		t.Errorf("got %v", out)
	}
}

func TestTruncate(t *testing.T) {
	tr := NewTruncate(5, 3)
	out := make([]float64, 3)
	tr.Transform([]float64{1, 2, 3, 4, 5}, out)
	if out[0] != 1 || out[1] != 2 || out[2] != 3 {
		t.Errorf("got %v", out)
	}
}

func TestLinear(t *testing.T) {
	tr := NewLinear([][]float64{{1, 0}, {0, 2}})
	out := make([]float64, 2)
	tr.Transform([]float64{5, 5}, out)
	if out[0] != 5 || out[1] != 10 {
		t.Errorf("got %v", out)
	}
}

func TestRegistryFallsBackToIdentity(t *testing.T) {
	var warned string
	r := NewRegistry(func(format string, args ...interface{}) { warned = format })
	tr, err := r.Get("nonexistent", 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Name() != "identity" {
		t.Errorf("got %s, want identity", tr.Name())
	}
	if warned == "" {
		t.Errorf("expected a warning to be logged")
	}
}

func TestRegistryEmptyNameIsIdentity(t *testing.T) {
	r := NewRegistry(nil)
	tr, err := r.Get("", 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Name() != "identity" {
		t.Errorf("got %s", tr.Name())
	}
}

func TestRegistryTruncateRejectsWideningStride(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.Get("truncate", 2, 5); err == nil {
		t.Fatal("expected error for recv>send")
	}
}
