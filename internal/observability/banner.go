package observability

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

var startTime = time.Now()

const (
	colorReset    = "\033[0m"
	colorPurple   = "\033[35m"
	colorNeonCyan = "\033[96m"
	colorNeonMag  = "\033[95m"
)

// termMu serializes terminal output between log writes and status lines.
var termMu sync.Mutex

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return w
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

type termWriter struct{}

func (tw termWriter) Write(p []byte) (n int, err error) {
	termMu.Lock()
	defer termMu.Unlock()
	return os.Stderr.Write(p)
}

// NewTermWriter returns an io.Writer suitable for log.SetOutput().
func NewTermWriter() io.Writer {
	return termWriter{}
}

func PrintBanner(w io.Writer) {
	banner := `
  ___ ___    _ _____   __     _   ___ ___ _  _ _____
 / __| _ \  /_\_  /\ \ / /    /_\ / __| __| \| |_   _|
| (__|   / / _ \/ /  \ V /    / _ \ (_ | _|| .' | | |
 \___|_|_\/_/ \_\/___| |_|   /_/ \_\___|___|_|\_| |_|

        >> INSTRUCTION TO ACTION <<
`
	width := termWidth()
	termMu.Lock()
	defer termMu.Unlock()
	for _, l := range strings.Split(banner, "\n") {
		padding := (width - len(l)) / 2
		if padding < 0 {
			padding = 0
		}
		fmt.Fprintf(w, "%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan+l, colorReset)
	}
}

// StatusLine renders heartbeat health, the run in flight, finished run
// totals and memory use.
func StatusLine() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	st := Status()

	pulse, pulseColor := "HEALTHY", colorNeonCyan
	switch delta := time.Since(LastHeartbeat()); {
	case delta >= 90*time.Second:
		pulse, pulseColor = "OFFLINE", colorNeonMag
	case delta >= 40*time.Second:
		pulse, pulseColor = "LAGGING", colorPurple
	}

	var task string
	switch st.Phase {
	case PhaseParsing:
		task = st.Command
	case PhaseExecuting:
		task = fmt.Sprintf("%d/%d %s", st.Step, st.TotalSteps, st.Description)
	default:
		task = "Waiting..."
	}
	if len(task) > 40 {
		task = task[:37] + "..."
	}

	return fmt.Sprintf("%s%-7s%s | %-9s | %s | runs %d (%d failed) | up %v | %.1fMB",
		pulseColor, pulse, colorReset,
		st.Phase, task,
		st.Finished, st.Failed,
		time.Since(startTime).Round(time.Second),
		float64(m.Alloc)/1024/1024,
	)
}
