package ctl

import (
	"fmt"
	"strings"
	"time"
)

// RecordingsOptions configures the recordings command.
type RecordingsOptions struct {
	Limit int
	JSON  bool
}

// Recordings lists the daemon's recording history, newest first.
func Recordings(baseURL string, opts RecordingsOptions) error {
	path := "/api/recordings"
	if opts.Limit > 0 {
		path += fmt.Sprintf("?limit=%d", opts.Limit)
	}

	var resp struct {
		Recordings []struct {
			ID        string    `json:"id"`
			Satellite string    `json:"satellite"`
			FreqMHz   float64   `json:"freq_mhz"`
			Started   time.Time `json:"started"`
			Ended     time.Time `json:"ended"`
			Frames    int64     `json:"frames"`
			Path      string    `json:"path"`
			Status    string    `json:"status"`
			Error     string    `json:"error"`
		} `json:"recordings"`
	}
	if err := getJSON(baseURL, path, &resp); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  RECORDINGS"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("-", 70)))

	if len(resp.Recordings) == 0 {
		fmt.Println("  no recordings yet")
	}
	for _, r := range resp.Recordings {
		status := colorize(stateColor(r.Status), padRight(r.Status, 9))
		fmt.Printf("  %s %s  %s  %s  %d frames\n",
			r.Started.Local().Format("Jan 02 15:04"),
			status,
			padRight(r.Satellite, 16),
			formatDuration(r.Ended.Sub(r.Started)),
			r.Frames,
		)
		if r.Error != "" {
			fmt.Printf("    %s %s\n", colorize(red, "error:"), r.Error)
		}
	}
	fmt.Println()
	return nil
}
