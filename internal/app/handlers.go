package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gbgsat/aptrec/internal/predict"
	"github.com/gbgsat/aptrec/internal/scheduler"
	"github.com/gbgsat/aptrec/internal/store"
)

func (a *App) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/api/status", a.handleStatus)
	mux.HandleFunc("/api/satellites", a.handleSatellites)
	mux.HandleFunc("/api/passes", a.handlePasses)
	mux.HandleFunc("/api/recordings", a.handleRecordings)
	mux.HandleFunc("/api/trigger", a.handleTrigger)
	mux.HandleFunc("/api/reload", a.handleReload)
	mux.HandleFunc("/api/tle/refresh", a.handleTLERefresh)
	mux.Handle("/ws", a.hub.Handler())
	return mux
}

func (a *App) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (a *App) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":           "aptrec",
		"uptime_seconds": int64(time.Since(a.startedAt).Seconds()),
		"data_root":      a.cfg.Data.Root,
		"sdr_driver":     a.cfg.SDR.Driver,
		"satellites":     len(a.catalog.Satellites()),
		"active_jobs":    a.registry.Active(),
	})
}

func (a *App) handleSatellites(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"satellites": a.catalog.Satellites()})
}

// handlePasses predicts on demand over the configured horizon. Satellites
// whose prediction fails are reported in an errors map instead of failing
// the whole response.
func (a *App) handlePasses(w http.ResponseWriter, r *http.Request) {
	opts := predict.Options{
		Horizon: time.Duration(a.cfg.Schedule.HorizonMinutes) * time.Minute,
		Step:    time.Duration(a.cfg.Schedule.StepMinutes) * time.Minute,
		MaskDeg: a.cfg.Schedule.ElevationMaskDeg,
	}

	satFilter := strings.ToUpper(r.URL.Query().Get("satellite"))

	windows := []predict.Window{}
	errs := map[string]string{}
	for _, sat := range a.catalog.Satellites() {
		if satFilter != "" && strings.ToUpper(sat.Name) != satFilter {
			continue
		}
		found, err := a.predictor.Predict(sat, opts)
		if err != nil {
			errs[sat.Name] = err.Error()
			continue
		}
		windows = append(windows, found...)
	}

	resp := map[string]any{"passes": windows}
	if len(errs) > 0 {
		resp["errors"] = errs
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleRecordings(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	recs, err := a.store.List(r.Context(), limit)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []store.Recording{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"recordings": recs})
}

// handleTrigger starts an immediate manual recording.
func (a *App) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Satellite       string `json:"satellite"`
		DurationSeconds *int   `json:"duration_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}

	// An omitted duration gets the default; a present but non-positive one
	// is a client error.
	duration := 600
	if req.DurationSeconds != nil {
		if *req.DurationSeconds <= 0 {
			jsonError(w, "duration_seconds must be > 0", http.StatusBadRequest)
			return
		}
		duration = *req.DurationSeconds
	}

	job, err := a.scheduler.Trigger(r.Context(), req.Satellite, time.Duration(duration)*time.Second)
	if err != nil {
		switch {
		case errors.Is(err, scheduler.ErrUnknownSatellite):
			jsonError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, scheduler.ErrInvalidDuration):
			jsonError(w, err.Error(), http.StatusBadRequest)
		default:
			jsonError(w, err.Error(), http.StatusConflict)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"job_id":    job.ID,
		"satellite": job.Satellite,
		"duration":  int(job.Duration.Seconds()),
	})
}

// handleReload forces an unconditional catalog reload from disk.
func (a *App) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := a.catalog.Load(); err != nil {
		jsonError(w, "catalog reload failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	n := len(a.catalog.Satellites())
	a.log.Info("catalog reloaded via api", zap.Int("satellites", n))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "satellites": n})
}

// handleTLERefresh fetches fresh orbital elements from the configured TLE
// source and rewrites the catalog file.
func (a *App) handleTLERefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	n, err := a.catalog.Refresh(a.cfg.Catalog.TLEURL)
	if err != nil {
		jsonError(w, "tle refresh failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	a.log.Info("tle data refreshed via api", zap.Int("updated", n))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "updated": n})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]any{"ok": false, "error": msg})
}
