// Package config handles loading, defaulting, and validation of the aptrec
// TOML configuration file. Every section maps to a typed struct so the rest
// of the codebase gets strong typing without manual key lookups.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Data     DataConfig     `toml:"data"     json:"data"`
	Logging  LoggingConfig  `toml:"logging"  json:"logging"`
	Server   ServerConfig   `toml:"server"   json:"server"`
	Station  StationConfig  `toml:"station"  json:"station"`
	Catalog  CatalogConfig  `toml:"catalog"  json:"catalog"`
	SDR      SDRConfig      `toml:"sdr"      json:"sdr"`
	Capture  CaptureConfig  `toml:"capture"  json:"capture"`
	Schedule ScheduleConfig `toml:"schedule" json:"schedule"`
	Store    StoreConfig    `toml:"store"    json:"store"`
}

type DataConfig struct {
	// Root is where finished WAV recordings land.
	Root string `toml:"root" json:"root"`
}

type LoggingConfig struct {
	Level string `toml:"level" json:"level"`
	Debug bool   `toml:"debug" json:"debug"`
}

type ServerConfig struct {
	Bind string `toml:"bind" json:"bind"`
}

type StationConfig struct {
	Latitude  float64 `toml:"latitude"  json:"latitude"`
	Longitude float64 `toml:"longitude" json:"longitude"`
	Altitude  float64 `toml:"altitude"  json:"altitude"`
	UseGPSD   bool    `toml:"use_gpsd"  json:"use_gpsd"`
	GPSDHost  string  `toml:"gpsd_host" json:"gpsd_host"`
}

type CatalogConfig struct {
	// Path to the satellites TOML file (names, frequencies, TLE pairs).
	Path string `toml:"path" json:"path"`
	// TLEURL is the bulk TLE source used by the tle-refresh operation.
	TLEURL string `toml:"tle_url" json:"tle_url"`
}

type SDRConfig struct {
	// Driver selects the receiver backend: "rtltcp" or "sim".
	Driver string `toml:"driver" json:"driver"`
	// Addr is the rtl_tcp server address when driver is "rtltcp".
	Addr       string `toml:"addr"        json:"addr"`
	SampleRate int    `toml:"sample_rate" json:"sample_rate"`
}

type CaptureConfig struct {
	OutSampleRate int     `toml:"out_sample_rate" json:"out_sample_rate"`
	ChunkSeconds  float64 `toml:"chunk_seconds"   json:"chunk_seconds"`
	DecimateA     int     `toml:"decimate_a"      json:"decimate_a"`
	DecimateB     int     `toml:"decimate_b"      json:"decimate_b"`
}

type ScheduleConfig struct {
	TickSeconds      int     `toml:"tick_seconds"       json:"tick_seconds"`
	HorizonMinutes   int     `toml:"horizon_minutes"    json:"horizon_minutes"`
	StepMinutes      int     `toml:"step_minutes"       json:"step_minutes"`
	ElevationMaskDeg float64 `toml:"elevation_mask_deg" json:"elevation_mask_deg"`
	GuardSeconds     int     `toml:"guard_seconds"      json:"guard_seconds"`
	LeadMinutes      int     `toml:"lead_minutes"       json:"lead_minutes"`
	// MaxTicks bounds how many scheduler ticks may be in flight at once.
	MaxTicks int `toml:"max_ticks" json:"max_ticks"`
}

type StoreConfig struct {
	Path string `toml:"path" json:"path"`
}

// Default returns a Config populated with sane defaults. Values here are
// used whenever the TOML file omits a field.
func Default() Config {
	return Config{
		Data: DataConfig{
			Root: "/var/lib/aptrec/recordings",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Bind: "0.0.0.0:8080",
		},
		Station: StationConfig{
			Latitude:  57.69,
			Longitude: 11.97,
			Altitude:  0,
			UseGPSD:   false,
			GPSDHost:  "localhost:2947",
		},
		Catalog: CatalogConfig{
			Path:   "/etc/aptrec/satellites.toml",
			TLEURL: "https://celestrak.org/NORAD/elements/gp.php?GROUP=weather&FORMAT=tle",
		},
		SDR: SDRConfig{
			Driver:     "rtltcp",
			Addr:       "127.0.0.1:1234",
			SampleRate: 2_400_000,
		},
		Capture: CaptureConfig{
			OutSampleRate: 12_000,
			ChunkSeconds:  0.25,
			DecimateA:     50,
			DecimateB:     4,
		},
		Schedule: ScheduleConfig{
			TickSeconds:      60,
			HorizonMinutes:   12 * 60,
			StepMinutes:      1,
			ElevationMaskDeg: 10,
			GuardSeconds:     20,
			LeadMinutes:      10,
			MaxTicks:         2,
		},
		Store: StoreConfig{
			Path: "/var/lib/aptrec/recordings.db",
		},
	}
}

// Load reads the TOML file at path, layers it on top of the defaults, and
// validates the result. An error is returned if the file can't be read,
// parsed, or if any constraint is violated.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks field and cross-field constraints.
func Validate(cfg Config) error {
	if cfg.Data.Root == "" {
		return errors.New("data.root must not be empty")
	}
	if cfg.Catalog.Path == "" {
		return errors.New("catalog.path must not be empty")
	}
	switch cfg.SDR.Driver {
	case "rtltcp", "sim":
	default:
		return fmt.Errorf("sdr.driver must be \"rtltcp\" or \"sim\", got %q", cfg.SDR.Driver)
	}
	if cfg.SDR.SampleRate <= 0 {
		return errors.New("sdr.sample_rate must be > 0")
	}
	if cfg.Capture.OutSampleRate <= 0 {
		return errors.New("capture.out_sample_rate must be > 0")
	}
	if cfg.Capture.ChunkSeconds <= 0 {
		return errors.New("capture.chunk_seconds must be > 0")
	}
	if cfg.Capture.DecimateA < 1 || cfg.Capture.DecimateB < 1 {
		return errors.New("capture.decimate_a and capture.decimate_b must be >= 1")
	}
	if got := cfg.Capture.OutSampleRate * cfg.Capture.DecimateA * cfg.Capture.DecimateB; got != cfg.SDR.SampleRate {
		return fmt.Errorf("decimation mismatch: out_sample_rate*decimate_a*decimate_b = %d but sdr.sample_rate = %d", got, cfg.SDR.SampleRate)
	}
	if cfg.Station.Latitude == 0 && cfg.Station.Longitude == 0 && cfg.Station.Altitude == 0 && !cfg.Station.UseGPSD {
		return errors.New("station location is unset; set station.latitude/longitude or enable use_gpsd")
	}
	if cfg.Station.Latitude < -90 || cfg.Station.Latitude > 90 {
		return errors.New("station.latitude must be between -90 and 90")
	}
	if cfg.Station.Longitude < -180 || cfg.Station.Longitude > 180 {
		return errors.New("station.longitude must be between -180 and 180")
	}
	if cfg.Schedule.ElevationMaskDeg < 0 || cfg.Schedule.ElevationMaskDeg > 90 {
		return errors.New("schedule.elevation_mask_deg must be between 0 and 90")
	}
	if cfg.Schedule.TickSeconds < 1 {
		return errors.New("schedule.tick_seconds must be >= 1")
	}
	if cfg.Schedule.StepMinutes < 1 {
		return errors.New("schedule.step_minutes must be >= 1")
	}
	if cfg.Schedule.HorizonMinutes < cfg.Schedule.StepMinutes {
		return errors.New("schedule.horizon_minutes must be >= schedule.step_minutes")
	}
	if cfg.Schedule.LeadMinutes < 0 {
		return errors.New("schedule.lead_minutes must be >= 0")
	}
	if cfg.Schedule.GuardSeconds < 0 {
		return errors.New("schedule.guard_seconds must be >= 0")
	}
	if cfg.Schedule.MaxTicks < 1 {
		return errors.New("schedule.max_ticks must be >= 1")
	}
	return nil
}
