package coupling

import (
	"fmt"
	"time"

	"github.com/scicoupler/fcoupler/assert"
	"github.com/scicoupler/fcoupler/log"
	"github.com/scicoupler/fcoupler/metrics"
	"github.com/scicoupler/fcoupler/mpi"
)

// ErrManyToMany is returned by Driver.Execute for a plan whose topology
// is many-to-many: this is a topology error, rejected at execute time;
// Builder.Build only logs a warning when it builds such a plan.
type ErrManyToMany struct{ Plan string }

func (e ErrManyToMany) Error() string {
	return fmt.Sprintf("coupling: plan %q is many-to-many, which is not a supported transfer topology", e.Plan)
}

// Driver executes built TransferPlans. One driver is shared across a
// coupling run's lifetime; Execute is called once per coupling iteration
// with the same plan slice.
type Driver struct {
	Metrics *metrics.Collector // optional
	Log     *log.Logger        // optional, defaults to log.Default()
}

func (d *Driver) logger() *log.Logger {
	if d.Log != nil {
		return d.Log
	}
	return log.Default()
}

// Execute runs every plan in order, barrier-synchronizing the whole
// coupling communicator after each one so that ranks uninvolved in a
// given plan still advance in lockstep with the rest. The barrier is not
// expected to ever fail short of the MPI runtime itself being broken, so
// unlike the engines' collectives, whose errors are returned, it is
// checked with assert.OK: there is no recovery path for a communicator
// that cannot barrier.
func (d *Driver) Execute(couplingComm mpi.Comm, plans []*TransferPlan) error {
	for _, p := range plans {
		start := time.Now()
		if err := d.executeOne(p); err != nil {
			return err
		}
		if d.Metrics != nil {
			d.Metrics.ExecuteSeconds.WithLabelValues(p.Name).Observe(time.Since(start).Seconds())
		}
		assert.OK(couplingComm.Barrier())
	}
	return nil
}

func (d *Driver) executeOne(p *TransferPlan) error {
	switch p.Topology() {
	case ManyToOne:
		elems, bytes := gatherEngine{}.countLocal(p)
		d.recordTransfer(p, "gather", elems, bytes)
		return gatherEngine{}.execute(p)
	case OneToOne, OneToMany:
		elems, bytes := scatterEngine{}.countLocal(p)
		d.recordTransfer(p, "scatter", elems, bytes)
		return scatterEngine{Metrics: d.Metrics, Log: d.logger()}.execute(p)
	default:
		return ErrManyToMany{Plan: p.Name}
	}
}

func (d *Driver) recordTransfer(p *TransferPlan, direction string, elems, bytes int) {
	if d.Metrics == nil || elems == 0 {
		return
	}
	d.Metrics.ElementsTransferred.WithLabelValues(p.Name, direction).Add(float64(elems))
	d.Metrics.BytesTransferred.WithLabelValues(p.Name, direction).Add(float64(bytes))
}
