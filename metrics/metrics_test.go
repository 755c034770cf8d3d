package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewRegistersAndReuses(t *testing.T) {
	reg := prometheus.NewRegistry()
	c1, err := New(reg)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := New(reg)
	if err != nil {
		t.Fatalf("second registration should reuse existing collectors: %v", err)
	}
	c1.ElementsTransferred.WithLabelValues("p", "gather").Inc()
	c2.ElementsTransferred.WithLabelValues("p", "gather").Inc()

	mf, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, f := range mf {
		if f.GetName() == "fcoupler_elements_transferred_total" {
			found = true
			if got := f.Metric[0].Counter.GetValue(); got != 2 {
				t.Errorf("got %v, want 2", got)
			}
		}
	}
	if !found {
		t.Fatal("metric family not found")
	}
}
