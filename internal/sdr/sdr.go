// Package sdr abstracts the radio receiver: something that can be tuned to
// a frequency and streamed for complex baseband samples. One Session is
// exclusively owned by one capture job for its whole lifetime; the package
// does not support sharing a tuner between jobs.
package sdr

// TunerConfig holds the settings applied when a session is opened.
type TunerConfig struct {
	CenterHz   uint32
	SampleRate uint32
	AutoGain   bool
}

// Receiver opens exclusive tuner sessions.
type Receiver interface {
	Open(cfg TunerConfig) (Session, error)
}

// Session is one tuned, exclusively-owned sample stream.
type Session interface {
	// ReadIQ fills buf completely with complex baseband samples, blocking
	// until enough samples arrive. It returns the number of samples read
	// and a non-nil error if the stream ended or failed before buf filled.
	ReadIQ(buf []complex64) (int, error)
	Close() error
}
