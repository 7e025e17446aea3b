// netsimd -- deterministic link-layer/IPv4 network simulator daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/lp-netsim/netsim/internal/config"
	"github.com/lp-netsim/netsim/internal/control"
	"github.com/lp-netsim/netsim/internal/device"
	netsimmetrics "github.com/lp-netsim/netsim/internal/metrics"
	"github.com/lp-netsim/netsim/internal/sim"
	"github.com/lp-netsim/netsim/internal/simclock"
	"github.com/lp-netsim/netsim/internal/topology"
	appversion "github.com/lp-netsim/netsim/internal/version"
)

// shutdownTimeout is the maximum time to wait for HTTP servers to drain
// active connections during graceful shutdown.
const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()),
		)
		return 1
	}

	logger := newLogger(cfg.Log)

	logger.Info("netsimd starting",
		slog.String("version", appversion.Version),
		slog.String("control_addr", cfg.Control.Addr),
		slog.String("metrics_addr", cfg.Metrics.Addr),
		slog.String("topology", cfg.Sim.Topology),
	)

	doc, err := topology.Load(cfg.Sim.Topology)
	if err != nil {
		logger.Error("failed to load topology", slog.String("error", err.Error()))
		return 1
	}
	s, handles, err := topology.Build(doc, ripIntervalOverrides(doc, cfg.Sim, cfg.Routers))
	if err != nil {
		logger.Error("failed to build topology", slog.String("error", err.Error()))
		return 1
	}
	logger.Info("topology built", slog.Int("devices", len(handles)))

	reg := prometheus.NewRegistry()
	collector := netsimmetrics.NewCollector(reg)
	attachMetrics(s, handles, collector, logger)

	if err := runServers(cfg, s, reg, logger); err != nil {
		logger.Error("netsimd exited with error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("netsimd stopped")
	return 0
}

// ripIntervalOverrides converts cfg.Sim.DefaultRIPInterval and each
// cfg.Routers[] entry from wall-clock durations into tick counts, keyed
// by router name, for topology.Build to apply before RIP is enabled on
// any of that router's ports. DefaultRIPInterval, when set, applies to
// every router the topology declares; a matching cfg.Routers[] entry
// overrides it for that router alone. A router left out of both ends up
// absent from the map, so topology.Build falls back to the package's
// fixed default cadence.
func ripIntervalOverrides(doc *topology.Doc, simCfg config.SimConfig, routers []config.RouterConfig) map[string]uint64 {
	overrides := make(map[string]uint64)

	if defaultTicks := durationToTicks(simCfg.DefaultRIPInterval); defaultTicks != 0 {
		for _, d := range doc.Devices {
			if d.Kind == "router" {
				overrides[d.Name] = defaultTicks
			}
		}
	}
	for _, rc := range routers {
		if ticks := durationToTicks(rc.RIPInterval); ticks != 0 {
			overrides[rc.Name] = ticks
		}
	}
	return overrides
}

func durationToTicks(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	ticks := d.Seconds() * device.TicksPerSecond
	if ticks < 1 {
		return 1
	}
	return uint64(ticks)
}

// attachMetrics wires the Prometheus collector into every switch, router,
// and desktop the topology declared, labeling each by its topology-file
// name.
func attachMetrics(s *sim.Simulation, handles map[string]sim.DeviceHandle, collector *netsimmetrics.Collector, logger *slog.Logger) {
	for name, h := range handles {
		kind, err := s.Kind(h)
		if err != nil {
			continue
		}
		switch kind {
		case sim.KindSwitch, sim.KindRouter:
			if err := s.AttachMetrics(h, name, collector); err != nil {
				logger.Warn("failed to attach metrics", slog.String("device", name), slog.String("error", err.Error()))
			}
		case sim.KindDesktop:
			if err := s.AttachDesktopMetrics(h, name, collector); err != nil {
				logger.Warn("failed to attach desktop metrics", slog.String("device", name), slog.String("error", err.Error()))
			}
		}
	}
}

// runServers sets up and runs the tick loop, control API, and metrics
// server using an errgroup with signal-aware context for graceful shutdown.
func runServers(cfg *config.Config, s *sim.Simulation, reg *prometheus.Registry, logger *slog.Logger) error {
	var mu sync.Mutex

	metricsSrv := newMetricsServer(cfg.Metrics, reg)
	controlSrv := newControlServer(cfg.Control, s, &mu, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	startHTTPServers(gCtx, g, cfg, controlSrv, metricsSrv, logger)

	clock := simclock.NewManual(0)
	g.Go(func() error {
		return runTickLoop(gCtx, cfg.Sim.TickInterval, s, clock, &mu, logger)
	})

	g.Go(func() error {
		<-gCtx.Done()
		return gracefulShutdown(gCtx, logger, controlSrv, metricsSrv)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run servers: %w", err)
	}
	return nil
}

// startHTTPServers registers the control API and metrics server goroutines.
func startHTTPServers(ctx context.Context, g *errgroup.Group, cfg *config.Config, controlSrv, metricsSrv *http.Server, logger *slog.Logger) {
	lc := net.ListenConfig{}

	g.Go(func() error {
		logger.Info("control API listening", slog.String("addr", cfg.Control.Addr))
		return listenAndServe(ctx, &lc, controlSrv, cfg.Control.Addr)
	})

	g.Go(func() error {
		logger.Info("metrics server listening",
			slog.String("addr", cfg.Metrics.Addr),
			slog.String("path", cfg.Metrics.Path),
		)
		return listenAndServe(ctx, &lc, metricsSrv, cfg.Metrics.Addr)
	})
}

// runTickLoop drives the simulation's tick quantum off a wall-clock ticker.
// The simulation itself is synchronous and unit-less; netsimd is what pins
// one tick to real time.
func runTickLoop(ctx context.Context, interval time.Duration, s *sim.Simulation, clock *simclock.Manual, mu *sync.Mutex, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			mu.Lock()
			s.Step()
			mu.Unlock()
			clock.Advance(1)
		}
	}
}

// gracefulShutdown shuts down the HTTP servers within shutdownTimeout.
// The parent context is already cancelled when this function is called;
// a fresh timeout context is created internally for the drain.
func gracefulShutdown(ctx context.Context, logger *slog.Logger, servers ...*http.Server) error {
	logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("shutdown server: %w", err))
		}
	}
	return shutdownErr
}

func listenAndServe(ctx context.Context, lc *net.ListenConfig, srv *http.Server, addr string) error {
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", addr, err)
	}
	return nil
}

func newMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func newControlServer(cfg config.ControlConfig, s *sim.Simulation, mu *sync.Mutex, logger *slog.Logger) *http.Server {
	ctrl := control.New(s, mu, logger)
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           ctrl.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: config.ParseLogLevel(cfg.Level)}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
