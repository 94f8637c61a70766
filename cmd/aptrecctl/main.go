// Aptrecctl is the command-line client for a running aptrecd instance. It
// queries status, passes, and recording history over HTTP and can stream
// live events over WebSocket.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/gbgsat/aptrec/internal/ctl"
)

func main() {
	var (
		host    = pflag.StringP("host", "H", "http://127.0.0.1:8080", "Daemon base URL")
		jsonOut = pflag.Bool("json", false, "Output raw JSON instead of formatted text")
		filter  = pflag.StringSlice("filter", nil, "Event types to show in watch (e.g. --filter job_state,log)")
	)

	// Stop parsing global flags at the first non-flag argument so
	// subcommand flags like --duration are not rejected.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cmd := pflag.Arg(0)
	subArgs := pflag.Args()[1:]

	var err error
	switch cmd {
	case "status":
		err = ctl.Status(*host, *jsonOut)

	case "satellites":
		err = ctl.Satellites(*host, *jsonOut)

	case "passes":
		opts := ctl.PassesOptions{JSON: *jsonOut}
		fs := pflag.NewFlagSet("passes", pflag.ContinueOnError)
		fs.StringVar(&opts.Satellite, "satellite", "", "Filter by satellite name")
		fs.IntVar(&opts.Count, "count", 0, "Limit number of passes shown")
		_ = fs.Parse(subArgs)
		err = ctl.Passes(*host, opts)

	case "recordings":
		opts := ctl.RecordingsOptions{JSON: *jsonOut}
		fs := pflag.NewFlagSet("recordings", pflag.ContinueOnError)
		fs.IntVar(&opts.Limit, "limit", 0, "Limit number of recordings shown")
		_ = fs.Parse(subArgs)
		err = ctl.Recordings(*host, opts)

	case "trigger":
		opts := ctl.TriggerOptions{JSON: *jsonOut}
		fs := pflag.NewFlagSet("trigger", pflag.ContinueOnError)
		fs.IntVar(&opts.DurationSeconds, "duration", 600, "Recording duration in seconds")
		_ = fs.Parse(subArgs)
		if fs.NArg() > 0 {
			opts.Satellite = fs.Arg(0)
		}
		err = ctl.Trigger(*host, opts)

	case "reload":
		err = ctl.Reload(*host, *jsonOut)

	case "tle-refresh":
		err = ctl.TLERefresh(*host, *jsonOut)

	case "watch":
		err = ctl.Watch(*host, ctl.WatchOptions{Filter: *filter, JSON: *jsonOut})

	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Print(`
  aptrecctl — APT recorder control CLI

  USAGE
    aptrecctl [flags] <command> [command-flags]

  COMMANDS
    status          Show daemon uptime and active jobs
    satellites      List the satellite catalog
    passes          List upcoming passes
    recordings      List recording history
    trigger         Start an immediate recording
    reload          Reload the satellite catalog from disk
    tle-refresh     Fetch fresh TLE data and rewrite the catalog
    watch           Stream live events (Ctrl-C to stop)

  GLOBAL FLAGS
    -H, --host URL      Daemon base URL (default: http://127.0.0.1:8080)
        --json          Output raw JSON instead of formatted text
        --filter TYPE   Event types to show in watch (comma-separated)

  COMMAND FLAGS
    passes:
        --satellite NAME    Filter by satellite name
        --count N           Limit number of passes shown

    recordings:
        --limit N           Limit number of recordings shown

    trigger:
        --duration SECS     Recording duration in seconds (default: 600)

  EXAMPLES
    aptrecctl status
    aptrecctl passes --satellite "NOAA 19" --count 5
    aptrecctl trigger "NOAA 19" --duration 600
    aptrecctl recordings --limit 20
    aptrecctl watch --filter job_state,capture_progress

`)
}
