package sdr

import (
	"fmt"
	"io"
	"net"

	"github.com/bemasher/rtltcp"
)

// RTLTCP opens sessions against an rtl_tcp server. The server end owns the
// physical dongle; this side is pure protocol plumbing.
type RTLTCP struct {
	Addr string
}

// Open connects to the rtl_tcp server and applies the tuner settings. The
// returned session owns the TCP connection.
func (r *RTLTCP) Open(cfg TunerConfig) (Session, error) {
	addr, err := net.ResolveTCPAddr("tcp", r.Addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", r.Addr, err)
	}

	var dev rtltcp.SDR
	if err := dev.Connect(addr); err != nil {
		return nil, fmt.Errorf("connect %s: %w", r.Addr, err)
	}

	if err := dev.SetSampleRate(cfg.SampleRate); err != nil {
		dev.Close()
		return nil, fmt.Errorf("set sample rate: %w", err)
	}
	if err := dev.SetCenterFreq(cfg.CenterHz); err != nil {
		dev.Close()
		return nil, fmt.Errorf("set center freq: %w", err)
	}
	if cfg.AutoGain {
		if err := dev.SetGainMode(false); err != nil {
			dev.Close()
			return nil, fmt.Errorf("set gain mode: %w", err)
		}
		if err := dev.SetAGCMode(true); err != nil {
			dev.Close()
			return nil, fmt.Errorf("set agc: %w", err)
		}
	}

	return &rtltcpSession{dev: dev}, nil
}

type rtltcpSession struct {
	dev rtltcp.SDR
	raw []byte
}

// ReadIQ reads interleaved unsigned 8-bit I/Q pairs off the wire and
// recenters them around zero. rtl_tcp represents DC as 127.5.
func (s *rtltcpSession) ReadIQ(buf []complex64) (int, error) {
	need := len(buf) * 2
	if cap(s.raw) < need {
		s.raw = make([]byte, need)
	}
	raw := s.raw[:need]

	if _, err := io.ReadFull(s.dev, raw); err != nil {
		return 0, err
	}

	for i := range buf {
		re := (float32(raw[2*i]) - 127.5) / 127.5
		im := (float32(raw[2*i+1]) - 127.5) / 127.5
		buf[i] = complex(re, im)
	}
	return len(buf), nil
}

func (s *rtltcpSession) Close() error {
	return s.dev.Close()
}
