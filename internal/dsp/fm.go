// Package dsp provides the two signal-processing capabilities the capture
// pipeline consumes: FM phase discrimination and anti-aliased decimation.
// Blocks are processed independently; the FM discriminator carries one
// sample of state across block boundaries via an explicit anchor.
package dsp

import "math/cmplx"

// DemodFM frequency-demodulates a block of complex baseband samples by
// taking the phase of each sample multiplied by the conjugate of its
// predecessor. When anchor is non-nil it is prefixed as the predecessor of
// the first sample, so demodulation across consecutive blocks has no phase
// discontinuity at the boundary. The returned sample is the block's last
// raw sample, to be passed as the anchor for the next block.
//
// With an anchor the output has len(iq) samples; without one the first
// input sample has no predecessor and the output has len(iq)-1.
func DemodFM(iq []complex64, anchor *complex64) ([]float64, complex64) {
	if len(iq) == 0 {
		if anchor != nil {
			return nil, *anchor
		}
		return nil, 0
	}

	var prev complex128
	var out []float64
	if anchor != nil {
		out = make([]float64, 0, len(iq))
		prev = complex128(*anchor)
	} else {
		out = make([]float64, 0, len(iq)-1)
		prev = complex128(iq[0])
		iq = iq[1:]
	}

	for _, s := range iq {
		cur := complex128(s)
		out = append(out, cmplx.Phase(cur*cmplx.Conj(prev)))
		prev = cur
	}

	return out, complex64(prev)
}
