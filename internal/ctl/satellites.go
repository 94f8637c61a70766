package ctl

import (
	"fmt"
	"strings"
)

// Satellites lists the daemon's satellite catalog.
func Satellites(baseURL string, jsonOutput bool) error {
	var resp struct {
		Satellites []struct {
			Name    string  `json:"name"`
			FreqMHz float64 `json:"freq_mhz"`
		} `json:"satellites"`
	}
	if err := getJSON(baseURL, "/api/satellites", &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  SATELLITE CATALOG"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("-", 38)))
	if len(resp.Satellites) == 0 {
		fmt.Println("  catalog is empty")
	}
	for _, s := range resp.Satellites {
		fmt.Printf("  %s  %.3f MHz\n", padRight(s.Name, 16), s.FreqMHz)
	}
	fmt.Println()
	return nil
}
