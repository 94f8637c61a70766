// Package capture records one satellite pass: it streams complex baseband
// samples from a receiver session in fixed-duration chunks, FM-demodulates
// them with a continuity anchor across chunk boundaries, decimates to the
// audio output rate, and appends the result to an incrementally-written WAV
// file. Memory use is bounded by the chunk size regardless of recording
// length.
package capture

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gbgsat/aptrec/internal/dsp"
	"github.com/gbgsat/aptrec/internal/sdr"
)

// Stage identifies where a capture failed.
type Stage string

const (
	StageAcquire Stage = "acquire" // receiver unavailable; no output created
	StageRead    Stage = "read"    // mid-stream read error; partial output kept
	StageWrite   Stage = "write"   // output file error
)

// Error is a capture failure tagged with its point of failure.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string { return fmt.Sprintf("capture %s: %v", e.Stage, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// FailStage extracts the stage from a capture error, or "" for other errors.
func FailStage(err error) Stage {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Stage
	}
	return ""
}

// Request identifies what to record.
type Request struct {
	Satellite string
	FreqMHz   float64
	Duration  time.Duration
}

// Result reports what a run produced. On a read or write failure the
// partial file described here is kept, not discarded.
type Result struct {
	Path           string
	Frames         int64
	Chunks         int
	DegradedChunks int
}

// Pipeline turns receiver samples into WAV files. One Run owns one receiver
// session for its full duration; pipelines for different satellites are
// independent of each other.
type Pipeline struct {
	Receiver      sdr.Receiver
	SampleRate    int     // receiver sample rate
	OutSampleRate int     // WAV sample rate after both decimation stages
	ChunkSeconds  float64 // processing chunk length
	DecimateA     int     // first-stage decimation factor
	DecimateB     int     // second-stage decimation factor
	OutDir        string
	Log           *zap.Logger

	// OnProgress, when set, is called after each chunk is written.
	OnProgress func(chunk, totalChunks int, frames int64)
}

const normalizeTarget = 0.9 // fraction of full scale each chunk is scaled to

// Run records req and returns the output description. The receiver session
// and the output file are released on every exit path; the WAV header is
// finalized from the frames actually written.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	session, err := p.Receiver.Open(sdr.TunerConfig{
		CenterHz:   uint32(math.Round(req.FreqMHz * 1e6)),
		SampleRate: uint32(p.SampleRate),
		AutoGain:   true,
	})
	if err != nil {
		return Result{}, &Error{Stage: StageAcquire, Err: err}
	}
	defer session.Close()

	outPath := filepath.Join(p.OutDir, OutputName(req.Satellite, time.Now().UTC(), req.FreqMHz))
	w, err := NewWAVWriter(outPath, p.OutSampleRate)
	if err != nil {
		return Result{}, &Error{Stage: StageWrite, Err: err}
	}

	res := Result{Path: outPath}
	runErr := p.stream(ctx, session, w, req.Duration, &res)

	if closeErr := w.Close(); closeErr != nil && runErr == nil {
		runErr = &Error{Stage: StageWrite, Err: closeErr}
	}
	res.Frames = w.Frames()

	return res, runErr
}

// stream runs the chunk loop. Chunks are strictly ordered: each chunk's
// demodulation depends on the previous chunk's last raw sample.
func (p *Pipeline) stream(ctx context.Context, session sdr.Session, w *WAVWriter, duration time.Duration, res *Result) error {
	durSec := duration.Seconds()
	totalChunks := int(math.Ceil(durSec / p.ChunkSeconds))
	if totalChunks < 1 {
		totalChunks = 1
	}

	var anchor *complex64
	iq := make([]complex64, int(float64(p.SampleRate)*p.ChunkSeconds))

	for i := 0; i < totalChunks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		// The final chunk is shortened to the exact remaining time so the
		// total duration matches the request to within one chunk's rounding.
		remaining := durSec - float64(i)*p.ChunkSeconds
		chunkSec := math.Min(p.ChunkSeconds, math.Max(0.001, remaining))
		n := int(float64(p.SampleRate) * chunkSec)
		if n > len(iq) {
			n = len(iq)
		}

		if _, err := session.ReadIQ(iq[:n]); err != nil {
			return &Error{Stage: StageRead, Err: err}
		}

		demod, last := dsp.DemodFM(iq[:n], anchor)
		anchorVal := last
		anchor = &anchorVal

		audio, degraded := p.decimate(demod)
		if degraded {
			res.DegradedChunks++
		}

		pcm := quantize(audio)
		if err := w.WriteFrames(pcm); err != nil {
			return &Error{Stage: StageWrite, Err: err}
		}
		res.Chunks++

		if p.OnProgress != nil {
			p.OnProgress(i+1, totalChunks, w.Frames())
		}
	}

	return nil
}

// decimate runs the two-stage cascade toward the output rate. If either
// stage fails, the whole chunk falls back to naive stride downsampling:
// audio quality degrades for that segment but the job keeps running.
func (p *Pipeline) decimate(demod []float64) (out []float64, degraded bool) {
	mid, err := dsp.Decimate(demod, p.DecimateA)
	if err == nil {
		out, err = dsp.Decimate(mid, p.DecimateB)
		if err == nil {
			return out, false
		}
	}

	if p.Log != nil {
		p.Log.Warn("decimation failed, stride fallback for chunk", zap.Error(err))
	}
	return dsp.Stride(demod, p.DecimateA*p.DecimateB), true
}

// quantize scales a chunk by its own peak to 90% of full scale and converts
// to 16-bit samples, clipping to the representable range. Per-chunk scaling
// can cause audible gain variation between chunks; that trade of quality
// for simplicity is intentional.
func quantize(audio []float64) []int16 {
	var peak float64
	for _, v := range audio {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}

	scale := 0.0
	if peak > 0 {
		scale = normalizeTarget / peak * 32767
	}

	pcm := make([]int16, len(audio))
	for i, v := range audio {
		s := v * scale
		if s > 32767 {
			s = 32767
		} else if s < -32768 {
			s = -32768
		}
		pcm[i] = int16(s)
	}
	return pcm
}

// OutputName builds the deterministic recording file name:
// <satellite>_<UTC timestamp>_<frequency in kHz>kHz.wav
func OutputName(satellite string, at time.Time, freqMHz float64) string {
	name := strings.ReplaceAll(satellite, " ", "_")
	return fmt.Sprintf("%s_%s_%dkHz.wav", name, at.Format("20060102_150405"), int(math.Round(freqMHz*1000)))
}
