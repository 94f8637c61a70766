package catalog

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

// Refresh downloads a bulk TLE set (CelesTrak 3-line format) from url and
// rewrites the catalog file with updated element pairs for every satellite
// whose name matches an entry in the dump. Frequencies and entries without a
// match are left untouched. The file is replaced via temp file + rename so a
// concurrent reload never sees a half-written catalog; the scheduler picks
// the change up through its normal modification-time check.
//
// Returns the number of satellites whose elements were updated.
func (c *Catalog) Refresh(url string) (int, error) {
	raw, err := fetchTLE(url)
	if err != nil {
		return 0, err
	}

	elements := parseBulkTLE(raw)
	if len(elements) == 0 {
		return 0, fmt.Errorf("no TLE groups found in response from %s", url)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := os.ReadFile(c.path)
	if err != nil {
		return 0, err
	}
	var f fileSchema
	if err := toml.Unmarshal(b, &f); err != nil {
		return 0, fmt.Errorf("parse %s: %w", c.path, err)
	}

	updated := 0
	for i, s := range f.Satellites {
		pair, ok := elements[normalizeName(s.Name)]
		if !ok {
			c.log.Warn("no TLE in refresh dump", zap.String("satellite", s.Name))
			continue
		}
		if f.Satellites[i].TLE1 == pair[0] && f.Satellites[i].TLE2 == pair[1] {
			continue
		}
		f.Satellites[i].TLE1 = pair[0]
		f.Satellites[i].TLE2 = pair[1]
		updated++
	}

	if updated == 0 {
		return 0, nil
	}

	if err := writeCatalogFile(c.path, f); err != nil {
		return 0, err
	}
	c.log.Info("catalog TLEs refreshed", zap.Int("updated", updated), zap.String("url", url))

	// Reload immediately so API consumers see the new elements without
	// waiting for the next scheduler tick.
	return updated, c.loadLocked()
}

func fetchTLE(url string) (string, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("TLE fetch returned HTTP %d", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// parseBulkTLE splits a 3-line TLE dump into element pairs keyed by
// normalized satellite name.
func parseBulkTLE(raw string) map[string][2]string {
	out := make(map[string][2]string)
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	for i := 0; i+2 < len(lines); i += 3 {
		name := strings.TrimSpace(lines[i])
		l1 := strings.TrimSpace(lines[i+1])
		l2 := strings.TrimSpace(lines[i+2])
		if !strings.HasPrefix(l1, "1 ") || !strings.HasPrefix(l2, "2 ") {
			continue
		}
		out[normalizeName(name)] = [2]string{l1, l2}
	}
	return out
}

// normalizeName makes "NOAA 19", "NOAA-19" and "noaa19" compare equal.
func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// writeCatalogFile marshals f and atomically replaces path.
func writeCatalogFile(path string, f fileSchema) error {
	data, err := toml.Marshal(f)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "satellites-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
