package predict

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// tpvReport is the subset of a gpsd TPV JSON object we need.
type tpvReport struct {
	Class string  `json:"class"`
	Mode  int     `json:"mode"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Alt   float64 `json:"altMSL"`
}

// LocationFromGPSD connects to gpsd at addr, enables watch mode, and reads
// TPV reports until a 2D or 3D fix arrives. The station location is fixed
// for the process lifetime, so this is called once at startup; a failure
// falls back to the configured coordinates.
func LocationFromGPSD(addr string, timeout time.Duration) (Location, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return Location{}, fmt.Errorf("gpsd connect: %w", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return Location{}, fmt.Errorf("gpsd set deadline: %w", err)
	}

	if _, err := fmt.Fprint(conn, `?WATCH={"enable":true,"json":true};`); err != nil {
		return Location{}, fmt.Errorf("gpsd watch: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var report tpvReport
		if err := json.Unmarshal(scanner.Bytes(), &report); err != nil {
			continue
		}
		if report.Class != "TPV" || report.Mode < 2 {
			continue
		}
		return Location{Lat: report.Lat, Lon: report.Lon, Alt: report.Alt}, nil
	}

	if err := scanner.Err(); err != nil {
		return Location{}, fmt.Errorf("gpsd read: %w", err)
	}
	return Location{}, fmt.Errorf("gpsd: no fix obtained within %v", timeout)
}
