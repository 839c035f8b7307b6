package main

import (
	"fmt"
	"os"

	"github.com/tendalyze/tendalyze/internal/store"
)

// consoleReporter prints loader progress to stderr
type consoleReporter struct {
	lastPct int
}

func (c *consoleReporter) OnStart(kind store.IngestKind) {
	fmt.Fprintf(os.Stderr, "Starting %s import\n", kind)
}

func (c *consoleReporter) OnProgress(message string, current int, total int) {
	if total <= 0 {
		fmt.Fprintf(os.Stderr, "Progress: %s (%d)\n", message, current)
		return
	}

	// Only print every 10%
	pct := current * 100 / total
	if pct/10 == c.lastPct/10 && current != total {
		return
	}
	c.lastPct = pct
	fmt.Fprintf(os.Stderr, "Progress: %s (%d/%d)\n", message, current, total)
}

func (c *consoleReporter) OnComplete(event store.IngestEvent) {
	fmt.Fprintf(os.Stderr, "Import %s complete (event %s)\n", event.Kind, event.EventID)
}

func (c *consoleReporter) OnError(err error) {
	fmt.Fprintf(os.Stderr, "Import error: %v\n", err)
}
