// Package feed delivers raw compile commands from a build host to the
// collector.
package feed

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ritzau/compdb/pkg/collector"
)

// MaxLineSize bounds a single event line. Response-file expanded command lines
// can be very long.
const MaxLineSize = 16 * 1024 * 1024

// Handler receives each command a feed produces. Returning an error stops the
// feed.
type Handler func(ctx context.Context, cmd collector.Command) error

// Feed is a source of compile commands.
type Feed interface {
	// Name identifies the feed in logs, e.g. "log:build.events".
	Name() string

	// Run delivers commands to h until the source is exhausted or ctx is
	// cancelled.
	Run(ctx context.Context, h Handler) error
}

// ParseEvent decodes one event line. A line holding a JSON object is decoded
// as a command event; anything else is taken as a raw command line. Blank
// lines yield ok == false.
func ParseEvent(line string) (cmd collector.Command, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return collector.Command{}, false
	}
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), &cmd); err == nil {
			return cmd, strings.TrimSpace(cmd.Line) != ""
		}
	}
	return collector.Command{Line: strings.TrimRight(line, "\r")}, true
}
