// Package predict computes upcoming visibility windows for the catalog
// satellites as seen from a fixed ground station. The pass search samples
// the satellite's elevation on a fixed grid and tracks mask crossings; SGP4
// propagation supplies the per-instant look angles.
package predict

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gbgsat/aptrec/internal/catalog"
)

// Location is the ground station position.
type Location struct {
	Lat float64 `json:"lat"` // degrees North
	Lon float64 `json:"lon"` // degrees East
	Alt float64 `json:"alt"` // meters above sea level
}

// IsZero reports whether the location was never set. An all-zero position
// is treated as unset rather than as a point in the Gulf of Guinea.
func (l Location) IsZero() bool {
	return l.Lat == 0 && l.Lon == 0 && l.Alt == 0
}

// Window is one predicted visibility interval. AOS is always strictly
// before LOS. Truncated marks a window cut short by the prediction horizon;
// callers should treat such a window as provisional and recompute later.
type Window struct {
	Satellite string    `json:"satellite"`
	AOS       time.Time `json:"aos"`
	LOS       time.Time `json:"los"`
	Truncated bool      `json:"truncated,omitempty"`
}

// Duration is the window length.
func (w Window) Duration() time.Duration { return w.LOS.Sub(w.AOS) }

// LookAngleFunc returns the elevation and azimuth, in degrees, of a
// satellite seen from a fixed location at the given instant.
type LookAngleFunc func(at time.Time) (elevation, azimuth float64, err error)

// Options controls the pass search resolution and horizon. Step is a
// resolution/cost trade-off: coarse steps under-detect short low-elevation
// passes.
type Options struct {
	Horizon time.Duration
	Step    time.Duration
	MaskDeg float64
}

// Predictor finds visibility windows for catalog satellites from one
// station location.
type Predictor struct {
	loc Location
	log *zap.Logger
	now func() time.Time
}

// New creates a predictor for the given station location.
func New(loc Location, log *zap.Logger) *Predictor {
	return &Predictor{loc: loc, log: log, now: time.Now}
}

// Predict returns the satellite's visibility windows from now through the
// horizon, sorted by AOS ascending. It fails only on bad orbital data or an
// unset station location; the search itself is pure computation.
func (p *Predictor) Predict(sat catalog.Satellite, opts Options) ([]Window, error) {
	if p.loc.IsZero() {
		return nil, fmt.Errorf("station location is unset")
	}
	angles, err := NewSGP4LookAngles(sat, p.loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sat.Name, err)
	}
	return Scan(sat.Name, angles, p.now().UTC(), opts)
}

// Scan walks the elevation samples from start through the horizon at the
// configured step, opening a window on the first sample at or above the
// mask and closing it on the first sample back below. A window still open
// at the end of the horizon closes at the horizon boundary and is flagged
// Truncated.
func Scan(name string, angles LookAngleFunc, start time.Time, opts Options) ([]Window, error) {
	if opts.Step <= 0 {
		return nil, fmt.Errorf("step must be > 0")
	}

	end := start.Add(opts.Horizon)
	steps := int(opts.Horizon / opts.Step)

	var (
		windows []Window
		inPass  bool
		aos     time.Time
	)

	for i := 0; i <= steps; i++ {
		t := start.Add(time.Duration(i) * opts.Step)
		el, _, err := angles(t)
		if err != nil {
			return nil, fmt.Errorf("propagate %s at %s: %w", name, t.Format(time.RFC3339), err)
		}

		switch {
		case el >= opts.MaskDeg && !inPass:
			inPass = true
			aos = t
		case el < opts.MaskDeg && inPass:
			windows = append(windows, Window{Satellite: name, AOS: aos, LOS: t})
			inPass = false
		}
	}

	if inPass {
		windows = append(windows, Window{Satellite: name, AOS: aos, LOS: end, Truncated: true})
	}

	return windows, nil
}

// EarliestFutureAOS returns the first window whose AOS is after now, for
// observability; ok is false when every window has already started.
func EarliestFutureAOS(windows []Window, now time.Time) (Window, bool) {
	for _, w := range windows {
		if w.AOS.After(now) {
			return w, true
		}
	}
	return Window{}, false
}
