package ctl

import (
	"fmt"
	"strings"
	"time"
)

// StatusResponse mirrors the JSON returned by GET /api/status.
type StatusResponse struct {
	Name          string      `json:"name"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	DataRoot      string      `json:"data_root"`
	SDRDriver     string      `json:"sdr_driver"`
	Satellites    int         `json:"satellites"`
	ActiveJobs    []activeJob `json:"active_jobs"`
}

type activeJob struct {
	JobID     string `json:"job_id"`
	Satellite string `json:"satellite"`
	Since     string `json:"since"`
}

// Status fetches the daemon status and prints a formatted summary.
func Status(baseURL string, jsonOutput bool) error {
	var s StatusResponse
	if err := getJSON(baseURL, "/api/status", &s); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(s)
	}

	uptime := formatDuration(time.Duration(s.UptimeSeconds) * time.Second)

	fmt.Println()
	fmt.Println(header("  APTREC STATUS"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("-", 38)))
	fmt.Printf("  %-12s %s\n", colorize(dim, "Daemon:"), s.Name)
	fmt.Printf("  %-12s %s\n", colorize(dim, "Uptime:"), uptime)
	fmt.Printf("  %-12s %s\n", colorize(dim, "Data:"), s.DataRoot)
	fmt.Printf("  %-12s %s\n", colorize(dim, "SDR:"), s.SDRDriver)
	fmt.Printf("  %-12s %d\n", colorize(dim, "Satellites:"), s.Satellites)

	if len(s.ActiveJobs) == 0 {
		fmt.Printf("  %-12s none\n", colorize(dim, "Jobs:"))
	} else {
		fmt.Printf("  %-12s\n", colorize(dim, "Jobs:"))
		for _, j := range s.ActiveJobs {
			fmt.Printf("    %s  %s  since %s\n", colorize(bold, j.Satellite), colorize(dim, j.JobID), formatTime(j.Since))
		}
	}
	fmt.Println()
	return nil
}
