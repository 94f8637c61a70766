package predict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// elevationAt builds a LookAngleFunc from a minute-indexed elevation table.
// Minutes outside the table read as well below any mask.
func elevationAt(start time.Time, byMinute map[int]float64) LookAngleFunc {
	return func(at time.Time) (float64, float64, error) {
		min := int(at.Sub(start) / time.Minute)
		if el, ok := byMinute[min]; ok {
			return el, 0, nil
		}
		return -90, 0, nil
	}
}

func TestScanSinglePass(t *testing.T) {
	start := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	// Elevation climbs above the mask at minute 5 and drops below at 15.
	table := map[int]float64{}
	for m := 5; m < 15; m++ {
		table[m] = 20 + float64(m)
	}

	windows, err := Scan("NOAA 19", elevationAt(start, table), start, Options{
		Horizon: time.Hour,
		Step:    time.Minute,
		MaskDeg: 10,
	})
	require.NoError(t, err)
	require.Len(t, windows, 1)

	w := windows[0]
	assert.Equal(t, "NOAA 19", w.Satellite)
	assert.Equal(t, start.Add(5*time.Minute), w.AOS)
	assert.Equal(t, start.Add(15*time.Minute), w.LOS)
	assert.False(t, w.Truncated)
	assert.Equal(t, 10*time.Minute, w.Duration())
}

func TestScanMultiplePasses(t *testing.T) {
	start := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)

	table := map[int]float64{}
	for m := 10; m < 20; m++ {
		table[m] = 45
	}
	for m := 110; m < 118; m++ {
		table[m] = 30
	}

	windows, err := Scan("NOAA 18", elevationAt(start, table), start, Options{
		Horizon: 4 * time.Hour,
		Step:    time.Minute,
		MaskDeg: 10,
	})
	require.NoError(t, err)
	require.Len(t, windows, 2)

	// Sorted by AOS, non-overlapping, AOS strictly before LOS.
	for i, w := range windows {
		assert.True(t, w.AOS.Before(w.LOS), "window %d", i)
		if i > 0 {
			assert.False(t, w.AOS.Before(windows[i-1].LOS), "window %d overlaps predecessor", i)
		}
	}
}

func TestScanTruncatedAtHorizon(t *testing.T) {
	start := time.Date(2026, 8, 23, 6, 0, 0, 0, time.UTC)

	// Still above the mask when the horizon ends.
	table := map[int]float64{}
	for m := 50; m <= 60; m++ {
		table[m] = 35
	}

	windows, err := Scan("METEOR-M2", elevationAt(start, table), start, Options{
		Horizon: time.Hour,
		Step:    time.Minute,
		MaskDeg: 10,
	})
	require.NoError(t, err)
	require.Len(t, windows, 1)

	assert.True(t, windows[0].Truncated)
	assert.Equal(t, start.Add(time.Hour), windows[0].LOS)
}

func TestScanNoPasses(t *testing.T) {
	start := time.Now().UTC()
	windows, err := Scan("NOAA 15", elevationAt(start, nil), start, Options{
		Horizon: time.Hour,
		Step:    time.Minute,
		MaskDeg: 10,
	})
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestScanBoundaryElevationCountsAsVisible(t *testing.T) {
	start := time.Date(2026, 8, 23, 9, 0, 0, 0, time.UTC)
	table := map[int]float64{3: 10, 4: 10} // exactly at the mask

	windows, err := Scan("NOAA 19", elevationAt(start, table), start, Options{
		Horizon: 10 * time.Minute,
		Step:    time.Minute,
		MaskDeg: 10,
	})
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, start.Add(3*time.Minute), windows[0].AOS)
	assert.Equal(t, start.Add(5*time.Minute), windows[0].LOS)
}

func TestScanRejectsBadStep(t *testing.T) {
	_, err := Scan("X", elevationAt(time.Now(), nil), time.Now(), Options{
		Horizon: time.Hour,
		Step:    0,
		MaskDeg: 10,
	})
	assert.Error(t, err)
}

func TestEarliestFutureAOS(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	windows := []Window{
		{Satellite: "A", AOS: now.Add(-10 * time.Minute), LOS: now.Add(-5 * time.Minute)},
		{Satellite: "B", AOS: now.Add(30 * time.Minute), LOS: now.Add(42 * time.Minute)},
		{Satellite: "C", AOS: now.Add(90 * time.Minute), LOS: now.Add(100 * time.Minute)},
	}

	w, ok := EarliestFutureAOS(windows, now)
	require.True(t, ok)
	assert.Equal(t, "B", w.Satellite)

	_, ok = EarliestFutureAOS(windows[:1], now)
	assert.False(t, ok)
}

func TestLocationIsZero(t *testing.T) {
	assert.True(t, Location{}.IsZero())
	assert.False(t, Location{Lat: 57.69, Lon: 11.97}.IsZero())
	assert.False(t, Location{Alt: 12}.IsZero())
}
