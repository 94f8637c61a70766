package predict

import (
	"fmt"
	"strings"
	"time"

	"github.com/akhenakh/sgp4"

	"github.com/gbgsat/aptrec/internal/catalog"
)

// NewSGP4LookAngles builds a LookAngleFunc for the satellite's element set
// as seen from loc. This is the only place per-instant SGP4 propagation is
// invoked; everything above it works against LookAngleFunc.
func NewSGP4LookAngles(sat catalog.Satellite, loc Location) (LookAngleFunc, error) {
	text := strings.TrimSpace(sat.Name) + "\n" +
		strings.TrimSpace(sat.TLE1) + "\n" +
		strings.TrimSpace(sat.TLE2)
	tle, err := sgp4.ParseTLE(text)
	if err != nil {
		return nil, fmt.Errorf("parse TLE: %w", err)
	}

	observer := &sgp4.Location{Latitude: loc.Lat, Longitude: loc.Lon, Altitude: loc.Alt}
	return func(at time.Time) (float64, float64, error) {
		eci, err := tle.FindPositionAtTime(at.UTC())
		if err != nil {
			return 0, 0, err
		}
		sv := &sgp4.StateVector{
			X: eci.Position.X, Y: eci.Position.Y, Z: eci.Position.Z,
			VX: eci.Velocity.X, VY: eci.Velocity.Y, VZ: eci.Velocity.Z,
		}
		obs, err := sv.GetLookAngle(observer, at.UTC())
		if err != nil {
			return 0, 0, err
		}
		return obs.LookAngles.Elevation, obs.LookAngles.Azimuth, nil
	}, nil
}
