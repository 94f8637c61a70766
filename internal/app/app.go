// Package app assembles the daemon: catalog, predictor, scheduler, recording
// store, WebSocket hub, and the HTTP API, and runs them under one lifecycle.
package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gbgsat/aptrec/internal/capture"
	"github.com/gbgsat/aptrec/internal/catalog"
	"github.com/gbgsat/aptrec/internal/config"
	"github.com/gbgsat/aptrec/internal/predict"
	"github.com/gbgsat/aptrec/internal/registry"
	"github.com/gbgsat/aptrec/internal/scheduler"
	"github.com/gbgsat/aptrec/internal/sdr"
	"github.com/gbgsat/aptrec/internal/store"
	"github.com/gbgsat/aptrec/internal/telemetry"
	"github.com/gbgsat/aptrec/internal/ws"
)

// Options holds everything App needs from the caller.
type Options struct {
	Cfg      config.Config
	Log      *zap.Logger
	Location predict.Location
}

// App is the top-level daemon process.
type App struct {
	cfg config.Config
	log *zap.Logger

	catalog   *catalog.Catalog
	predictor *predict.Predictor
	registry  *registry.Registry
	scheduler *scheduler.Scheduler
	store     *store.Store
	hub       *ws.Hub

	startedAt time.Time
}

// New builds the component graph. It fails if the data directory cannot be
// created, the catalog cannot be loaded, or the store cannot be opened;
// everything else is deferred to Run.
func New(opts Options) (*App, error) {
	cfg := opts.Cfg
	log := opts.Log

	if err := os.MkdirAll(cfg.Data.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create data root: %w", err)
	}

	cat := catalog.New(cfg.Catalog.Path, log.Named("catalog"))
	if err := cat.Load(); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	hub := ws.NewHub()
	reg := registry.New()
	pred := predict.New(opts.Location, log.Named("predict"))

	pipe := &capture.Pipeline{
		Receiver:      newReceiver(cfg.SDR),
		SampleRate:    cfg.SDR.SampleRate,
		OutSampleRate: cfg.Capture.OutSampleRate,
		ChunkSeconds:  cfg.Capture.ChunkSeconds,
		DecimateA:     cfg.Capture.DecimateA,
		DecimateB:     cfg.Capture.DecimateB,
		OutDir:        cfg.Data.Root,
		Log:           log.Named("capture"),
	}

	sched := scheduler.New(cat, pred, reg, pipe, st, hub, log.Named("scheduler"), scheduler.Options{
		Tick:     time.Duration(cfg.Schedule.TickSeconds) * time.Second,
		Horizon:  time.Duration(cfg.Schedule.HorizonMinutes) * time.Minute,
		Step:     time.Duration(cfg.Schedule.StepMinutes) * time.Minute,
		MaskDeg:  cfg.Schedule.ElevationMaskDeg,
		Guard:    time.Duration(cfg.Schedule.GuardSeconds) * time.Second,
		Lead:     time.Duration(cfg.Schedule.LeadMinutes) * time.Minute,
		MaxTicks: int64(cfg.Schedule.MaxTicks),
	})

	return &App{
		cfg:       cfg,
		log:       log,
		catalog:   cat,
		predictor: pred,
		registry:  reg,
		scheduler: sched,
		store:     st,
		hub:       hub,
		startedAt: time.Now(),
	}, nil
}

// newReceiver selects the receiver backend from config. The driver value
// was validated at load time.
func newReceiver(cfg config.SDRConfig) sdr.Receiver {
	if cfg.Driver == "sim" {
		return &sdr.Sim{}
	}
	return &sdr.RTLTCP{Addr: cfg.Addr}
}

// Run serves until ctx is cancelled. The HTTP server, the hub, the
// heartbeat, and the scheduler run as one errgroup; the first fatal error
// tears the rest down.
func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()

	ln, err := net.Listen("tcp", a.cfg.Server.Bind)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.Server.Bind, err)
	}

	server := &http.Server{
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.log.Info("listening", zap.String("addr", ln.Addr().String()))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		err := a.scheduler.Run(ctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	g.Go(func() error {
		a.heartbeatLoop(ctx)
		return nil
	})

	g.Go(func() error {
		if err := server.Serve(ln); err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.log.Info("shutdown requested")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutCtx)
	})

	return g.Wait()
}

// heartbeatLoop publishes a heartbeat every 10 seconds so clients can track
// liveness and active job count without polling.
func (a *App) heartbeatLoop(ctx context.Context) {
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.hub.Publish(telemetry.Heartbeat{
				Event:         telemetry.Envelope(telemetry.EventHeartbeat),
				UptimeSeconds: int64(time.Since(a.startedAt).Seconds()),
				ActiveJobs:    len(a.registry.Active()),
			})
		}
	}
}
