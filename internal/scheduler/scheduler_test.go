package scheduler

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/gbgsat/aptrec/internal/capture"
	"github.com/gbgsat/aptrec/internal/catalog"
	"github.com/gbgsat/aptrec/internal/predict"
	"github.com/gbgsat/aptrec/internal/registry"
	"github.com/gbgsat/aptrec/internal/sdr"
	"github.com/gbgsat/aptrec/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fixedForecast returns the same windows for every satellite.
type fixedForecast struct {
	windows []predict.Window
	err     error
}

func (f *fixedForecast) Predict(sat catalog.Satellite, _ predict.Options) ([]predict.Window, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]predict.Window, len(f.windows))
	for i, w := range f.windows {
		w.Satellite = sat.Name
		out[i] = w
	}
	return out, nil
}

// gateReceiver blocks the first read of each session until the gate channel
// is closed, so a test can hold a job in the capturing state.
type gateReceiver struct {
	gate chan struct{}
}

func (g *gateReceiver) Open(cfg sdr.TunerConfig) (sdr.Session, error) {
	return &gateSession{gate: g.gate, rate: float64(cfg.SampleRate)}, nil
}

type gateSession struct {
	gate  chan struct{}
	rate  float64
	n     int64
	first bool
}

func (s *gateSession) ReadIQ(buf []complex64) (int, error) {
	if !s.first {
		s.first = true
		if s.gate != nil {
			<-s.gate
		}
	}
	for i := range buf {
		ph := 0.2 * float64(s.n)
		buf[i] = complex(float32(math.Cos(ph)), float32(math.Sin(ph)))
		s.n++
	}
	return len(buf), nil
}

func (s *gateSession) Close() error { return nil }

const (
	testTLE1 = "1 25544U 98067A   25138.37048074  .00007749  00000+0  14567-3 0  9994"
	testTLE2 = "2 25544  51.6369  94.7823 0002558 120.7586  15.7840 15.49587957510533"
)

func writeTestCatalog(t *testing.T, names ...string) string {
	t.Helper()
	body := ""
	for _, name := range names {
		body += fmt.Sprintf("\n[[satellites]]\nname = %q\nfreq_mhz = 137.1\ntle1 = %q\ntle2 = %q\n", name, testTLE1, testTLE2)
	}
	path := filepath.Join(t.TempDir(), "satellites.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newTestScheduler(t *testing.T, fc Forecaster, recv sdr.Receiver, sats ...string) *Scheduler {
	t.Helper()

	log := zaptest.NewLogger(t)
	cat := catalog.New(writeTestCatalog(t, sats...), log)
	require.NoError(t, cat.Load())

	st, err := store.Open(filepath.Join(t.TempDir(), "recordings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	pipe := &capture.Pipeline{
		Receiver:      recv,
		SampleRate:    2000,
		OutSampleRate: 10,
		ChunkSeconds:  0.25,
		DecimateA:     50,
		DecimateB:     4,
		OutDir:        t.TempDir(),
		Log:           log,
	}

	return New(cat, fc, registry.New(), pipe, st, nil, log, Options{
		Tick:     time.Minute,
		Horizon:  12 * time.Hour,
		Step:     time.Minute,
		MaskDeg:  10,
		Guard:    0,
		Lead:     10 * time.Minute,
		MaxTicks: 2,
	})
}

func TestTickSchedulesImmediateJob(t *testing.T) {
	now := time.Now().UTC()
	fc := &fixedForecast{windows: []predict.Window{
		{AOS: now.Add(-time.Second), LOS: now.Add(500 * time.Millisecond)},
	}}
	s := newTestScheduler(t, fc, &sdr.Sim{}, "NOAA 19")

	s.tick(context.Background())
	s.wg.Wait()

	assert.False(t, s.Registry.Held("NOAA 19"))

	recs, err := s.Store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, StateCompleted, recs[0].Status)
	assert.Equal(t, "NOAA 19", recs[0].Satellite)
	assert.FileExists(t, recs[0].Path)
}

func TestOverlappingTicksDoNotDoubleBook(t *testing.T) {
	now := time.Now().UTC()
	fc := &fixedForecast{windows: []predict.Window{
		{AOS: now.Add(-time.Second), LOS: now.Add(5 * time.Second)},
	}}
	gate := make(chan struct{})
	s := newTestScheduler(t, fc, &gateReceiver{gate: gate}, "NOAA 19")

	ctx := context.Background()
	s.tick(ctx)

	require.Eventually(t, func() bool { return s.Registry.Held("NOAA 19") },
		time.Second, 5*time.Millisecond)

	// A second tick while the first job is still capturing must not start
	// another job for the same satellite.
	s.tick(ctx)

	close(gate)
	s.wg.Wait()

	recs, err := s.Store.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestDeferredJobWaitsForStart(t *testing.T) {
	now := time.Now().UTC()
	aos := now.Add(200 * time.Millisecond)
	fc := &fixedForecast{windows: []predict.Window{
		{AOS: aos, LOS: aos.Add(250 * time.Millisecond)},
	}}
	s := newTestScheduler(t, fc, &sdr.Sim{}, "NOAA 19")

	s.tick(context.Background())

	// The slot is claimed during the wait, before capture begins.
	assert.True(t, s.Registry.Held("NOAA 19"))

	s.wg.Wait()

	recs, err := s.Store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, StateCompleted, recs[0].Status)
	assert.False(t, recs[0].Started.Before(aos.Truncate(time.Second)))
}

func TestTickSkipsPassBeyondLead(t *testing.T) {
	now := time.Now().UTC()
	fc := &fixedForecast{windows: []predict.Window{
		{AOS: now.Add(time.Hour), LOS: now.Add(time.Hour + 12*time.Minute)},
	}}
	s := newTestScheduler(t, fc, &sdr.Sim{}, "NOAA 19")

	s.tick(context.Background())
	s.wg.Wait()

	assert.False(t, s.Registry.Held("NOAA 19"))
	recs, err := s.Store.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestTickSkipsSatelliteOnPredictionError(t *testing.T) {
	fc := &fixedForecast{err: fmt.Errorf("bad elements")}
	s := newTestScheduler(t, fc, &sdr.Sim{}, "NOAA 19")

	s.tick(context.Background())
	s.wg.Wait()

	assert.False(t, s.Registry.Held("NOAA 19"))
}

func TestCaptureFailureReleasesSlotAndRecordsFailure(t *testing.T) {
	now := time.Now().UTC()
	fc := &fixedForecast{windows: []predict.Window{
		{AOS: now.Add(-time.Second), LOS: now.Add(250 * time.Millisecond)},
	}}
	s := newTestScheduler(t, fc, &sdr.RTLTCP{Addr: "127.0.0.1:1"}, "NOAA 19")

	s.tick(context.Background())
	s.wg.Wait()

	assert.False(t, s.Registry.Held("NOAA 19"))

	// Acquire-stage failures create no file, so nothing is persisted, but
	// the satellite is free for the next tick.
	recs, err := s.Store.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestTrigger(t *testing.T) {
	fc := &fixedForecast{}
	s := newTestScheduler(t, fc, &sdr.Sim{}, "NOAA 19")
	ctx := context.Background()

	_, err := s.Trigger(ctx, "NOAA 99", time.Second)
	assert.ErrorIs(t, err, ErrUnknownSatellite)

	_, err = s.Trigger(ctx, "NOAA 19", 0)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	job, err := s.Trigger(ctx, "NOAA 19", 500*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, job.Immediate)

	// Second trigger while the first is active must be refused.
	_, err = s.Trigger(ctx, "NOAA 19", time.Second)
	assert.ErrorIs(t, err, ErrAlreadyActive)

	<-job.Done()
	assert.NoError(t, job.Err())
	s.wg.Wait()

	recs, lerr := s.Store.List(ctx, 10)
	require.NoError(t, lerr)
	require.Len(t, recs, 1)
	assert.Equal(t, job.ID, recs[0].ID)
	assert.Equal(t, StateCompleted, recs[0].Status)
}
