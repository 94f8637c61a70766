package ctl

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// WatchOptions controls the watch command behavior.
type WatchOptions struct {
	Filter []string // event types to show (empty = all)
	JSON   bool     // output raw JSON per event
}

// Watch connects to the daemon's WebSocket endpoint and streams events to
// the terminal until interrupted.
func Watch(baseURL string, opts WatchOptions) error {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	u.Path = "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if !opts.JSON {
		fmt.Println()
		fmt.Printf("  %s %s\n", colorize(green, "connected"), colorize(dim, u.String()))
		fmt.Println()
	}

	filterSet := make(map[string]bool, len(opts.Filter))
	for _, f := range opts.Filter {
		filterSet[f] = true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var ev map[string]any
			if err := json.Unmarshal(msg, &ev); err != nil {
				continue
			}
			evType, _ := ev["type"].(string)
			if len(filterSet) > 0 && !filterSet[evType] {
				continue
			}

			if opts.JSON {
				fmt.Println(string(msg))
			} else {
				renderEvent(evType, ev)
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sig:
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second),
		)
		return nil
	case <-done:
		return nil
	}
}

// renderEvent prints one event in a human-friendly format. Unknown types
// are dumped as JSON so nothing is lost.
func renderEvent(evType string, ev map[string]any) {
	ts := eventTime(ev)

	switch evType {
	case "heartbeat":
		uptime, _ := ev["uptime_seconds"].(float64)
		active, _ := ev["active_jobs"].(float64)
		fmt.Printf("  %s %s  up %s, %d active\n",
			colorize(dim, ts),
			colorize(dim, "heartbeat"),
			formatDuration(time.Duration(uptime)*time.Second),
			int(active),
		)

	case "pass_scheduled":
		sat, _ := ev["satellite"].(string)
		startAt, _ := ev["start_at"].(string)
		durSec, _ := ev["duration_seconds"].(float64)
		immediate, _ := ev["immediate"].(bool)
		kind := "deferred"
		if immediate {
			kind = "immediate"
		}
		fmt.Printf("  %s %s  %s  %s at %s for %s\n",
			colorize(dim, ts),
			colorize(bold, "PASS"),
			colorize(bold, sat),
			kind,
			formatTime(startAt),
			formatDuration(time.Duration(durSec)*time.Second),
		)

	case "job_state":
		sat, _ := ev["satellite"].(string)
		state, _ := ev["state"].(string)
		detail, _ := ev["detail"].(string)
		if detail != "" {
			detail = "  " + colorize(dim, detail)
		}
		fmt.Printf("  %s %s  %s%s\n",
			colorize(dim, ts),
			padRight(sat, 16),
			colorize(stateColor(state), state),
			detail,
		)

	case "capture_progress":
		sat, _ := ev["satellite"].(string)
		chunk, _ := ev["chunk"].(float64)
		total, _ := ev["total_chunks"].(float64)
		frames, _ := ev["frames"].(float64)
		pct := 0.0
		if total > 0 {
			pct = 100 * chunk / total
		}
		fmt.Printf("  %s %s  %3.0f%%  %d frames\n",
			colorize(dim, ts),
			colorize(cyan, padRight(sat, 16)),
			pct,
			int64(frames),
		)

	case "log":
		level, _ := ev["level"].(string)
		message, _ := ev["message"].(string)
		fmt.Printf("  %s %s  %s\n", colorize(dim, ts), logLevel(level), message)

	default:
		pretty, err := json.MarshalIndent(ev, "  ", "  ")
		if err != nil {
			return
		}
		fmt.Printf("  %s\n", string(pretty))
	}
}

// eventTime extracts and shortens the timestamp from an event.
func eventTime(ev map[string]any) string {
	raw, ok := ev["ts"].(string)
	if !ok {
		return "        "
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return raw
	}
	return t.Local().Format("15:04:05")
}

// logLevel returns a colored, fixed-width log level label.
func logLevel(level string) string {
	switch level {
	case "info":
		return colorize(green, "INFO ")
	case "warn":
		return colorize(yellow, "WARN ")
	case "error":
		return colorize(red, "ERROR")
	default:
		return padRight(level, 5)
	}
}
