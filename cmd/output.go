package cmd

import (
	"fmt"
	"io"
	"time"
)

// entryLayout is the timestamp format of log entries.
const entryLayout = time.DateTime

// printEntry writes a log entry: a timestamped head line followed by
// indented detail lines. An empty prefix omits the "prefix: " part.
func printEntry(w io.Writer, at time.Time, prefix, head string, details ...string) {
	if prefix != "" {
		prefix += ": "
	}
	fmt.Fprintf(w, "%s - %s%s\n", at.Format(entryLayout), prefix, head)
	for _, d := range details {
		fmt.Fprintf(w, "    %s\n", d)
	}
}
