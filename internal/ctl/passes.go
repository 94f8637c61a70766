package ctl

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// PassesOptions configures the passes command.
type PassesOptions struct {
	Satellite string
	Count     int
	JSON      bool
}

// Passes lists the upcoming visibility windows predicted by the daemon.
func Passes(baseURL string, opts PassesOptions) error {
	path := "/api/passes"
	if opts.Satellite != "" {
		path += "?satellite=" + url.QueryEscape(opts.Satellite)
	}

	var resp struct {
		Passes []struct {
			Satellite string    `json:"satellite"`
			AOS       time.Time `json:"aos"`
			LOS       time.Time `json:"los"`
			Truncated bool      `json:"truncated"`
		} `json:"passes"`
		Errors map[string]string `json:"errors"`
	}
	if err := getJSON(baseURL, path, &resp); err != nil {
		return err
	}

	if opts.Count > 0 && opts.Count < len(resp.Passes) {
		resp.Passes = resp.Passes[:opts.Count]
	}

	if opts.JSON {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  UPCOMING PASSES"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("-", 60)))

	if len(resp.Passes) == 0 {
		fmt.Println("  no passes within the prediction horizon")
	}
	for _, p := range resp.Passes {
		mark := ""
		if p.Truncated {
			mark = colorize(yellow, " (truncated)")
		}
		fmt.Printf("  %s  %s %s %s  %s%s\n",
			padRight(p.Satellite, 16),
			p.AOS.Local().Format("Jan 02 15:04:05"),
			colorize(dim, "->"),
			p.LOS.Local().Format("15:04:05"),
			formatDuration(p.LOS.Sub(p.AOS)),
			mark,
		)
	}

	for sat, msg := range resp.Errors {
		fmt.Printf("  %s %s: %s\n", colorize(red, "ERROR"), sat, msg)
	}

	fmt.Println()
	return nil
}
