package cli

import (
	"fmt"
	"io"

	"github.com/aqasim81/dmt/internal/executor"
)

// consoleReporter prints one line per finished migration.
type consoleReporter struct {
	out io.Writer
}

func (r consoleReporter) Report(e executor.Event) {
	switch e.Status {
	case executor.StatusCompleted:
		fmt.Fprintf(r.out, "    SUCCESS: %s\n", e.Identifier)
	case executor.StatusFailed:
		fmt.Fprintf(r.out, "    FAILURE: %s\n", e.Identifier)
	case executor.StatusNoop:
		fmt.Fprintf(r.out, "    %s\n", e.Message)
	}
}
