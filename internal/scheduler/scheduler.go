// Package scheduler drives the predict-schedule-capture cycle. A periodic
// tick reloads the catalog, predicts upcoming passes for every satellite,
// and hands at most one job per satellite to a worker goroutine. The
// registry keeps overlapping ticks from double-booking a satellite that is
// already waiting on or recording a pass.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/gbgsat/aptrec/internal/capture"
	"github.com/gbgsat/aptrec/internal/catalog"
	"github.com/gbgsat/aptrec/internal/predict"
	"github.com/gbgsat/aptrec/internal/registry"
	"github.com/gbgsat/aptrec/internal/store"
	"github.com/gbgsat/aptrec/internal/telemetry"
	"github.com/gbgsat/aptrec/internal/ws"
)

// Trigger failure modes, distinguishable so the API layer can map them to
// the right status codes.
var (
	ErrUnknownSatellite = errors.New("unknown satellite")
	ErrInvalidDuration  = errors.New("duration must be > 0")
	ErrAlreadyActive    = errors.New("satellite already has an active job")
)

// Options are the scheduling knobs.
type Options struct {
	Tick    time.Duration // interval between scheduling passes
	Horizon time.Duration // how far ahead to predict
	Step    time.Duration // prediction sampling step
	MaskDeg float64       // minimum elevation for a usable pass
	Guard   time.Duration // margin recorded before AOS and after LOS
	Lead    time.Duration // how early a future pass may be claimed
	// MaxTicks bounds concurrently-running tick bodies. A tick that cannot
	// get a slot is skipped, not queued.
	MaxTicks int64
}

// Forecaster supplies visibility windows per satellite. Satisfied by
// predict.Predictor; tests substitute synthetic schedules.
type Forecaster interface {
	Predict(sat catalog.Satellite, opts predict.Options) ([]predict.Window, error)
}

// Scheduler owns the tick loop and the job workers.
type Scheduler struct {
	Catalog   *catalog.Catalog
	Predictor Forecaster
	Registry  *registry.Registry
	Pipeline  *capture.Pipeline
	Store     *store.Store
	Hub       *ws.Hub
	Log       *zap.Logger
	Opts      Options

	now func() time.Time
	wg  sync.WaitGroup
}

// New wires a scheduler. Store and Hub may be nil; persistence and
// telemetry then degrade to logging only.
func New(cat *catalog.Catalog, pred Forecaster, reg *registry.Registry, pipe *capture.Pipeline, st *store.Store, hub *ws.Hub, log *zap.Logger, opts Options) *Scheduler {
	if opts.MaxTicks < 1 {
		opts.MaxTicks = 1
	}
	return &Scheduler{
		Catalog:   cat,
		Predictor: pred,
		Registry:  reg,
		Pipeline:  pipe,
		Store:     st,
		Hub:       hub,
		Log:       log,
		Opts:      opts,
		now:       time.Now,
	}
}

// Run ticks until ctx is cancelled, then waits for in-flight jobs to
// finish. The first tick fires immediately so a pass already in progress at
// startup is caught without waiting a full interval.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Log.Info("scheduler started",
		zap.Duration("tick", s.Opts.Tick),
		zap.Duration("horizon", s.Opts.Horizon),
		zap.Float64("mask_deg", s.Opts.MaskDeg),
	)

	sem := semaphore.NewWeighted(s.Opts.MaxTicks)

	ticker := time.NewTicker(s.Opts.Tick)
	defer ticker.Stop()

	s.spawnTick(ctx, sem)
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.Log.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.spawnTick(ctx, sem)
		}
	}
}

// spawnTick runs one tick body in the background if a slot is free. Ticks
// that would pile up behind a slow prediction round are dropped; the next
// interval covers the same horizon anyway.
func (s *Scheduler) spawnTick(ctx context.Context, sem *semaphore.Weighted) {
	if !sem.TryAcquire(1) {
		s.Log.Warn("tick skipped, previous ticks still running")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer sem.Release(1)
		s.tick(ctx)
	}()
}

// tick reloads the catalog if it changed on disk, then walks every
// satellite looking for a pass to claim. Prediction failures skip that
// satellite for this tick only.
func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.Catalog.Reload(); err != nil {
		s.Log.Warn("catalog reload failed, keeping previous snapshot", zap.Error(err))
	}

	popts := predict.Options{Horizon: s.Opts.Horizon, Step: s.Opts.Step, MaskDeg: s.Opts.MaskDeg}
	now := s.now().UTC()

	for _, sat := range s.Catalog.Satellites() {
		if ctx.Err() != nil {
			return
		}

		windows, err := s.Predictor.Predict(sat, popts)
		if err != nil {
			s.Log.Warn("prediction failed", zap.String("satellite", sat.Name), zap.Error(err))
			continue
		}

		if next, ok := predict.EarliestFutureAOS(windows, now); ok {
			s.Log.Debug("next pass",
				zap.String("satellite", sat.Name),
				zap.Time("aos", next.AOS),
				zap.Duration("in", next.AOS.Sub(now).Truncate(time.Second)),
			)
		}

		s.claim(ctx, sat, windows, now)
	}
}

// claim schedules at most one job for sat from its windows: an immediate
// job when a guarded window already covers now, otherwise a deferred job
// for the first window starting within the lead time. A satellite whose
// slot is held is left alone without logging; that is the steady state
// while its job runs.
func (s *Scheduler) claim(ctx context.Context, sat catalog.Satellite, windows []predict.Window, now time.Time) {
	for _, w := range windows {
		start := w.AOS.Add(-s.Opts.Guard)
		stop := w.LOS.Add(s.Opts.Guard)

		var job *Job
		switch {
		case !now.Before(start) && now.Before(stop):
			job = newJob(sat.Name, sat.FreqMHz, now, stop.Sub(now), true)
		case start.After(now) && start.Sub(now) < s.Opts.Lead:
			job = newJob(sat.Name, sat.FreqMHz, start, stop.Sub(start), false)
		default:
			continue
		}

		if !s.Registry.TryAcquire(sat.Name, registry.Entry{JobID: job.ID, Satellite: sat.Name, Since: now}) {
			return
		}

		if w.Truncated {
			s.Log.Warn("pass window truncated by horizon, duration may be short",
				zap.String("satellite", sat.Name), zap.Time("los", w.LOS))
		}

		s.launch(ctx, job)
		return
	}
}

// Trigger starts an immediate manual recording of a catalog satellite,
// subject to the same one-job-per-satellite rule as scheduled passes.
func (s *Scheduler) Trigger(ctx context.Context, name string, duration time.Duration) (*Job, error) {
	sat, ok := s.Catalog.ByName(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownSatellite)
	}
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}

	now := s.now().UTC()
	job := newJob(sat.Name, sat.FreqMHz, now, duration, true)
	if !s.Registry.TryAcquire(sat.Name, registry.Entry{JobID: job.ID, Satellite: sat.Name, Since: now}) {
		return nil, fmt.Errorf("%s: %w", sat.Name, ErrAlreadyActive)
	}

	s.launch(ctx, job)
	return job, nil
}

// launch hands a job holding a registry slot to a worker goroutine. The
// worker owns the slot from here; it releases it on every exit path.
func (s *Scheduler) launch(ctx context.Context, job *Job) {
	s.Log.Info("pass scheduled",
		zap.String("job_id", job.ID),
		zap.String("satellite", job.Satellite),
		zap.Time("start_at", job.StartAt),
		zap.Duration("duration", job.Duration.Truncate(time.Second)),
		zap.Bool("immediate", job.Immediate),
	)
	s.publish(telemetry.PassScheduled{
		Event:     telemetry.Envelope(telemetry.EventPassScheduled),
		JobID:     job.ID,
		Satellite: job.Satellite,
		FreqMHz:   job.FreqMHz,
		StartAt:   job.StartAt,
		Duration:  job.Duration.Seconds(),
		Immediate: job.Immediate,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runJob(ctx, job)
	}()
}

// runJob waits out the lead time if the job is deferred, records the pass,
// and persists the outcome. The registry slot is held for the whole span,
// including the wait, so overlapping ticks keep their hands off this
// satellite.
func (s *Scheduler) runJob(ctx context.Context, job *Job) {
	defer s.Registry.Release(job.Satellite)

	if !job.Immediate {
		job.setState(StateWaiting)
		s.publishState(job, "")
		if !sleepUntil(ctx, job.StartAt) {
			job.setState(StateFailed)
			job.finish(ctx.Err())
			s.publishState(job, "cancelled before start")
			return
		}
	}

	job.setState(StateCapturing)
	s.publishState(job, "")

	started := s.now().UTC()
	req := capture.Request{Satellite: job.Satellite, FreqMHz: job.FreqMHz, Duration: job.Duration}

	// Each job gets its own pipeline copy so the progress hook can carry the
	// job identity without racing concurrent jobs.
	pipe := *s.Pipeline
	pipe.OnProgress = func(chunk, total int, frames int64) {
		s.publish(telemetry.Progress{
			Event:       telemetry.Envelope(telemetry.EventProgress),
			JobID:       job.ID,
			Satellite:   job.Satellite,
			Chunk:       chunk,
			TotalChunks: total,
			Frames:      frames,
		})
	}

	result, err := pipe.Run(ctx, req)
	ended := s.now().UTC()
	job.finish(err)

	rec := store.Recording{
		ID:        job.ID,
		Satellite: job.Satellite,
		FreqMHz:   job.FreqMHz,
		Started:   started,
		Ended:     ended,
		Frames:    result.Frames,
		Path:      result.Path,
		Status:    StateCompleted,
	}

	if err != nil {
		job.setState(StateFailed)
		rec.Status = StateFailed
		rec.Error = err.Error()
		s.publishState(job, err.Error())
		s.Log.Error("capture failed",
			zap.String("job_id", job.ID),
			zap.String("satellite", job.Satellite),
			zap.String("stage", string(capture.FailStage(err))),
			zap.Error(err),
		)
	} else {
		job.setState(StateCompleted)
		s.publishState(job, result.Path)
		s.Log.Info("capture completed",
			zap.String("job_id", job.ID),
			zap.String("satellite", job.Satellite),
			zap.String("path", result.Path),
			zap.Int64("frames", result.Frames),
			zap.Int("degraded_chunks", result.DegradedChunks),
		)
	}

	if s.Store != nil && rec.Path != "" {
		if ierr := s.Store.Insert(context.Background(), rec); ierr != nil {
			s.Log.Warn("recording not persisted", zap.String("job_id", job.ID), zap.Error(ierr))
		}
	}
}

func (s *Scheduler) publishState(job *Job, detail string) {
	s.publish(telemetry.JobState{
		Event:     telemetry.Envelope(telemetry.EventJobState),
		JobID:     job.ID,
		Satellite: job.Satellite,
		State:     job.State(),
		Detail:    detail,
	})
}

func (s *Scheduler) publish(v any) {
	if s.Hub != nil {
		s.Hub.Publish(v)
	}
}

// sleepUntil blocks until t or until ctx is cancelled. Returns true if t
// was reached.
func sleepUntil(ctx context.Context, t time.Time) bool {
	d := time.Until(t)
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
