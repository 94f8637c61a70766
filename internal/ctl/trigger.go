package ctl

import (
	"fmt"
	"time"
)

// TriggerOptions configures the trigger command.
type TriggerOptions struct {
	Satellite       string
	DurationSeconds int
	JSON            bool
}

// Trigger asks the daemon to start an immediate manual recording.
func Trigger(baseURL string, opts TriggerOptions) error {
	if opts.Satellite == "" {
		return fmt.Errorf("satellite name is required")
	}

	// Omit the duration when unset so the daemon applies its default.
	req := map[string]any{"satellite": opts.Satellite}
	if opts.DurationSeconds > 0 {
		req["duration_seconds"] = opts.DurationSeconds
	}

	var resp struct {
		OK        bool   `json:"ok"`
		JobID     string `json:"job_id"`
		Satellite string `json:"satellite"`
		Duration  int    `json:"duration"`
	}
	if err := postJSON(baseURL, "/api/trigger", req, &resp); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(resp)
	}

	fmt.Printf("\n  %s  recording %s for %s (job %s)\n\n",
		colorize(green, "TRIGGERED"),
		colorize(bold, resp.Satellite),
		formatDuration(time.Duration(resp.Duration)*time.Second),
		colorize(dim, resp.JobID),
	)
	return nil
}
