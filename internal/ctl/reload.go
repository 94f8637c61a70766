package ctl

import "fmt"

// Reload forces the daemon to re-read its satellite catalog from disk.
func Reload(baseURL string, jsonOutput bool) error {
	var resp struct {
		OK         bool `json:"ok"`
		Satellites int  `json:"satellites"`
	}
	if err := postJSON(baseURL, "/api/reload", nil, &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Printf("\n  %s  catalog reloaded, %d satellites\n\n", colorize(green, "RELOADED"), resp.Satellites)
	return nil
}

// TLERefresh asks the daemon to fetch fresh orbital elements and rewrite
// its catalog.
func TLERefresh(baseURL string, jsonOutput bool) error {
	var resp struct {
		OK      bool `json:"ok"`
		Updated int  `json:"updated"`
	}
	if err := postJSON(baseURL, "/api/tle/refresh", nil, &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Printf("\n  %s  %d satellites updated\n\n", colorize(green, "TLE REFRESHED"), resp.Updated)
	return nil
}
