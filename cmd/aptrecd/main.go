// Aptrecd is the pass-synchronized APT recording daemon.
//
// It loads configuration, resolves the station location (static or from
// gpsd), and runs the scheduler plus HTTP/WebSocket API until SIGINT or
// SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gbgsat/aptrec/internal/app"
	"github.com/gbgsat/aptrec/internal/config"
	"github.com/gbgsat/aptrec/internal/predict"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "/etc/aptrec/aptrec.toml", "Path to config TOML")
		bind       = pflag.String("bind", "", "HTTP bind address (overrides config)")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	if *bind != "" {
		cfg.Server.Bind = *bind
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	loc, err := resolveLocation(cfg.Station, logger)
	if err != nil {
		logger.Fatal("station location unresolved", zap.Error(err))
	}
	logger.Info("station location",
		zap.Float64("lat", loc.Lat),
		zap.Float64("lon", loc.Lon),
		zap.Float64("alt_m", loc.Alt),
	)

	a, err := app.New(app.Options{Cfg: cfg, Log: logger, Location: loc})
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("aptrecd failed", zap.Error(err))
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	if cfg.Debug {
		return zap.NewDevelopment()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// resolveLocation returns the station position, asking gpsd for a fix when
// configured. A gpsd failure falls back to the static coordinates if they
// are set; with neither available the daemon refuses to start rather than
// predict passes for the wrong place.
func resolveLocation(cfg config.StationConfig, logger *zap.Logger) (predict.Location, error) {
	static := predict.Location{Lat: cfg.Latitude, Lon: cfg.Longitude, Alt: cfg.Altitude}

	if cfg.UseGPSD {
		loc, err := predict.LocationFromGPSD(cfg.GPSDHost, 10*time.Second)
		if err == nil {
			return loc, nil
		}
		logger.Warn("gpsd fix unavailable", zap.String("host", cfg.GPSDHost), zap.Error(err))
	}

	if static.IsZero() {
		return predict.Location{}, errors.New("no gpsd fix and no static coordinates configured")
	}
	return static, nil
}
