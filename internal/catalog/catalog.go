// Package catalog holds the satellite definitions the daemon records:
// name, downlink frequency, and a two-line element set per satellite,
// loaded from a TOML file. The catalog is reloaded when the backing file's
// modification time changes, and the loaded set is swapped in atomically so
// readers never observe a half-updated catalog.
package catalog

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akhenakh/sgp4"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

// Satellite is one immutable catalog entry. Entries are replaced wholesale
// on reload, never mutated in place.
type Satellite struct {
	Name    string  `toml:"name"     json:"name"`
	FreqMHz float64 `toml:"freq_mhz" json:"freq_mhz"`
	TLE1    string  `toml:"tle1"     json:"tle1"`
	TLE2    string  `toml:"tle2"     json:"tle2"`
}

// fileSchema mirrors the satellites TOML file.
type fileSchema struct {
	Satellites []Satellite `toml:"satellites"`
}

// Catalog loads satellite definitions and serves read-only snapshots.
type Catalog struct {
	path string
	log  *zap.Logger

	mu      sync.Mutex // serializes loads; readers go through snap
	modTime time.Time
	snap    atomic.Pointer[[]Satellite]
}

// New creates a catalog backed by the TOML file at path. Call Load before
// first use.
func New(path string, log *zap.Logger) *Catalog {
	c := &Catalog{path: path, log: log}
	empty := []Satellite{}
	c.snap.Store(&empty)
	return c
}

// Load reads the backing file unconditionally and replaces the snapshot.
// Entries that fail validation are skipped with a warning; the load only
// fails if the file itself cannot be read or parsed.
func (c *Catalog) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked()
}

// Reload re-reads the backing file only if its modification time changed
// since the last load. Returns true if a reload happened.
func (c *Catalog) Reload() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := os.Stat(c.path)
	if err != nil {
		return false, err
	}
	if info.ModTime().Equal(c.modTime) {
		return false, nil
	}
	if err := c.loadLocked(); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Catalog) loadLocked() error {
	info, err := os.Stat(c.path)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}

	var f fileSchema
	if err := toml.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("parse %s: %w", c.path, err)
	}

	sats := make([]Satellite, 0, len(f.Satellites))
	seen := make(map[string]bool, len(f.Satellites))
	for _, s := range f.Satellites {
		if err := validateEntry(s); err != nil {
			c.log.Warn("skipping catalog entry", zap.String("satellite", s.Name), zap.Error(err))
			continue
		}
		if seen[s.Name] {
			c.log.Warn("skipping duplicate catalog entry", zap.String("satellite", s.Name))
			continue
		}
		seen[s.Name] = true
		sats = append(sats, s)
	}

	c.snap.Store(&sats)
	c.modTime = info.ModTime()
	c.log.Info("catalog loaded",
		zap.String("path", c.path),
		zap.Int("satellites", len(sats)),
		zap.Int("skipped", len(f.Satellites)-len(sats)),
	)
	return nil
}

// validateEntry rejects entries the predictor or pipeline could not use.
func validateEntry(s Satellite) error {
	if s.Name == "" {
		return fmt.Errorf("missing name")
	}
	if s.FreqMHz <= 0 {
		return fmt.Errorf("freq_mhz must be > 0, got %g", s.FreqMHz)
	}
	if s.TLE1 == "" || s.TLE2 == "" {
		return fmt.Errorf("missing TLE pair")
	}
	if _, err := sgp4.ParseTLE(tleText(s.Name, s.TLE1, s.TLE2)); err != nil {
		return fmt.Errorf("invalid TLE: %w", err)
	}
	return nil
}

// tleText assembles the 3-line TLE form the sgp4 parser expects.
func tleText(name, l1, l2 string) string {
	return strings.TrimSpace(name) + "\n" + strings.TrimSpace(l1) + "\n" + strings.TrimSpace(l2)
}

// Satellites returns the current snapshot. The returned slice must be
// treated as read-only.
func (c *Catalog) Satellites() []Satellite {
	return *c.snap.Load()
}

// ByName finds a satellite by its exact name.
func (c *Catalog) ByName(name string) (Satellite, bool) {
	for _, s := range *c.snap.Load() {
		if s.Name == name {
			return s, true
		}
	}
	return Satellite{}, false
}
