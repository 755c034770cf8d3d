// Command fcoupler-run loads a coupling configuration, builds its
// transfer plans against the current MPI world, and executes one
// coupling iteration. It is a smoke-test driver: the physical models
// that would normally populate storage.Registry with real field data are
// out of scope, so this binary is mainly useful for validating that a
// configuration's namespaces, transfer specs and transformer names are
// internally consistent before wiring it into an actual solver.
package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/scicoupler/fcoupler/config"
	"github.com/scicoupler/fcoupler/coupling"
	"github.com/scicoupler/fcoupler/log"
	"github.com/scicoupler/fcoupler/metrics"
	"github.com/scicoupler/fcoupler/mpi"
	"github.com/scicoupler/fcoupler/namespace"
	"github.com/scicoupler/fcoupler/plan"
	"github.com/scicoupler/fcoupler/rankgroup"
	"github.com/scicoupler/fcoupler/storage"
	"github.com/scicoupler/fcoupler/transform"
)

var configPath string
var dryRun bool

var rootCmd = &cobra.Command{
	Use:   "fcoupler-run",
	Short: "Build and execute a field-coupling configuration against the current MPI world",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the coupling YAML configuration")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "build plans but do not execute them")
	rootCmd.MarkFlagRequired("config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Exitf("fcoupler-run: %v", err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	logger := log.Default()
	logger.SetLevel(level)

	world, err := mpi.World()
	if err != nil {
		return fmt.Errorf("fcoupler-run: %w", err)
	}
	logger.Infof("running as rank %d of %d", world.Rank(), world.Size())

	namespaces := namespace.NewRegistry()
	for _, ns := range cfg.Namespaces {
		namespaces.Register(&namespace.Namespace{
			Name:          ns.Name,
			Ranks:         plan.RankSet(ns.Ranks),
			PhysicalModel: ns.PhysicalModel,
		})
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector, err = metrics.New(nil)
		if err != nil {
			return fmt.Errorf("fcoupler-run: %w", err)
		}
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", collector.Handler())
			if err := http.ListenAndServe(cfg.Metrics.ListenAddr, mux); err != nil {
				logger.Errorf("metrics server: %v", err)
			}
		}()
		logger.Infof("metrics exposed on %s/metrics", cfg.Metrics.ListenAddr)
	}

	transformers := transform.NewRegistry(logger.Warnf)
	for name, rows := range cfg.LinearTransformers {
		rows := rows
		transformers.Register(name, func(send, recv int) (transform.VarSetTransformer, error) {
			lin := transform.NewLinear(rows)
			if lin.InWidth() != send || lin.OutWidth() != recv {
				return nil, fmt.Errorf("transform: linear %q is %dx%d, want %dx%d for send=%d recv=%d", name, lin.OutWidth(), lin.InWidth(), recv, send, send, recv)
			}
			return lin, nil
		})
	}

	builder := &coupling.Builder{
		Namespaces:   namespaces,
		RankGroups:   rankgroup.NewRegistry(),
		Storage:      storage.NewRegistry(),
		Transformers: transformers,
		Metrics:      collector,
		Log:          logger,
	}

	plans, err := builder.Build(world, cfg.SocketsSendRecv, cfg.SocketsConnType, cfg.SendToRecvVariableTransformer)
	if err != nil {
		return fmt.Errorf("fcoupler-run: %w", err)
	}
	logger.Infof("built %d transfer plans", len(plans))

	if dryRun {
		return nil
	}

	driver := &coupling.Driver{Metrics: collector, Log: logger}
	return driver.Execute(world, plans)
}
