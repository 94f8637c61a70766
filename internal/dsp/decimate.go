package dsp

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

var (
	// ErrBadFactor is returned for a decimation factor below 1.
	ErrBadFactor = errors.New("dsp: decimation factor must be >= 1")
	// ErrShortBlock is returned when the block is too short to filter.
	ErrShortBlock = errors.New("dsp: block shorter than decimation factor")
)

// kernels caches one lowpass kernel per decimation factor.
var kernels sync.Map // int -> []float64

// Decimate lowpass-filters block and keeps every factor-th sample. The
// filter is a Hamming-windowed sinc evaluated only at output positions, so
// cost scales with the output length, not the input length. The output has
// ceil(len(block)/factor) samples.
func Decimate(block []float64, factor int) ([]float64, error) {
	if factor < 1 {
		return nil, ErrBadFactor
	}
	if len(block) == 0 || len(block) < factor {
		return nil, fmt.Errorf("%w: %d samples, factor %d", ErrShortBlock, len(block), factor)
	}
	if factor == 1 {
		out := make([]float64, len(block))
		copy(out, block)
		return out, nil
	}

	h := kernel(factor)
	half := len(h) / 2

	out := make([]float64, 0, (len(block)+factor-1)/factor)
	for center := 0; center < len(block); center += factor {
		var acc float64
		for k, c := range h {
			idx := center - half + k
			if idx < 0 || idx >= len(block) {
				continue
			}
			acc += c * block[idx]
		}
		out = append(out, acc)
	}
	return out, nil
}

// Stride returns every factor-th sample with no anti-aliasing filter. It is
// the degraded fallback when Decimate fails: aliasing is accepted in that
// block so the capture keeps running. Output length matches Decimate.
func Stride(block []float64, factor int) []float64 {
	if factor < 1 {
		factor = 1
	}
	out := make([]float64, 0, (len(block)+factor-1)/factor)
	for i := 0; i < len(block); i += factor {
		out = append(out, block[i])
	}
	return out
}

// kernel returns the cached lowpass kernel for factor, designing it on
// first use. Cutoff sits at 90% of the post-decimation Nyquist rate.
func kernel(factor int) []float64 {
	if h, ok := kernels.Load(factor); ok {
		return h.([]float64)
	}

	taps := 8*factor + 1
	fc := 0.45 / float64(factor)
	m := float64(taps-1) / 2

	h := make([]float64, taps)
	var sum float64
	for k := range h {
		x := float64(k) - m
		var s float64
		if x == 0 {
			s = 2 * fc
		} else {
			s = math.Sin(2*math.Pi*fc*x) / (math.Pi * x)
		}
		// Hamming window
		w := 0.54 - 0.46*math.Cos(2*math.Pi*float64(k)/float64(taps-1))
		h[k] = s * w
		sum += h[k]
	}
	for k := range h {
		h[k] /= sum
	}

	kernels.Store(factor, h)
	return h
}
