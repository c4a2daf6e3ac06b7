package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ssgreg/repeat"

	"github.com/ethfleet/nodesplit/internal/lib/misc"
	"github.com/ethfleet/nodesplit/internal/lib/split"
)

// Daemon re-reads the plan configuration on an interval, recomputes the split
// and serves the rendered allocation to pollers, with gauges for scraping.
// The computation itself stays a single-threaded, single-pass pipeline; only
// this outer surface is long-lived.
type Daemon struct {
	logger   *slog.Logger
	cfgPath  string        // "" when running on built-in defaults
	fallback *split.Config // the already-loaded config, used when no file exists
	interval time.Duration
	port     uint64

	// embed mutex for locking state for members below the mutex
	sync.RWMutex
	rendered string
	summary  string
}

func newDaemon(interval time.Duration, port uint64) *Daemon {
	return &Daemon{
		logger:   App.logger,
		cfgPath:  App.configPath,
		fallback: App.planConfig,
		interval: interval,
		port:     port,
	}
}

func (d *Daemon) start(ctx context.Context, wg *sync.WaitGroup) {
	d.logger.Info("Starting nodesplit daemon")

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.PlanWatcher(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.serveHTTP(ctx)
	}()
}

// PlanWatcher recomputes immediately on startup, then re-reads the plan
// configuration every interval so fleet operators can edit the file without
// restarting the daemon.
func (d *Daemon) PlanWatcher(ctx context.Context) {
	defer d.logger.Info("Exiting PlanWatcher")
	d.logger.Info("Starting PlanWatcher")

	if err := d.recompute(); err != nil {
		misc.Errorf(d.logger, "initial plan computation failed: %v", err)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.interval):
			if err := d.recompute(); err != nil {
				misc.Warnf(d.logger, "plan recomputation failed, keeping last result: %v", err)
			}
		}
	}
}

// recompute reloads the config (with retry - the file may be mid-rewrite by
// an editor or a config push) and runs the pipeline.  With no config file the
// daemon computes from the config it started with - there is nothing on disk
// to watch.
func (d *Daemon) recompute() error {
	cfg := d.fallback
	if d.cfgPath != "" {
		var err error
		cfg, err = d.refetchConfig()
		if err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	plan, err := split.BuildPlan(*cfg)
	if err != nil {
		return err
	}
	res := split.Apportion(plan, *cfg)
	for _, warning := range res.Warnings {
		misc.Warnf(d.logger, "%s", warning)
	}
	blocks := split.Render(res)
	summary := split.Summary(*cfg, plan, res)
	split.PublishMetrics(res)

	d.Lock()
	d.rendered = blocks
	d.summary = summary
	d.Unlock()

	misc.Infof(d.logger, "plan recomputed: %d cells, %d machines, %d validators",
		len(res.Allocations), res.TotalMachines(), res.TotalValidators())
	return nil
}

func (d *Daemon) refetchConfig() (*split.Config, error) {
	var cfg *split.Config
	err := repeat.Repeat(
		repeat.Fn(func() error {
			var err error
			cfg, _, err = LoadPlanConfig(d.cfgPath)
			if err != nil {
				return repeat.HintTemporary(err)
			}
			return nil
		}),
		repeat.StopOnSuccess(),
		repeat.LimitMaxTries(10),
		repeat.FnOnError(func(err error) error {
			d.logger.Warn("retrying read of plan config", "error", err.Error())
			return err
		}),
		repeat.WithDelay(
			repeat.SetContextHintStop(),
			(&repeat.FullJitterBackoffBuilder{
				BaseDelay: 1 * time.Second,
				MaxDelay:  5 * time.Second,
			}).Set(),
		),
	)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (d *Daemon) serveHTTP(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/allocations", func(w http.ResponseWriter, r *http.Request) {
		d.RLock()
		defer d.RUnlock()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, d.summary, "\n", d.rendered)
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", d.port),
		Handler: mux,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	misc.Infof(d.logger, "serving /allocations and /metrics on port %d", d.port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		misc.Errorf(d.logger, "http server error: %v", err)
	}
}
