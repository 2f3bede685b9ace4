package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/danpilch/pidflame/pkg/probe"
)

// TraceLogger writes one line per decoded probe event.
type TraceLogger struct {
	mu      sync.Mutex
	writer  io.Writer
	enabled bool
	now     func() time.Time
}

// NewTraceLogger creates a trace logger writing to the given writer.
func NewTraceLogger(w io.Writer) *TraceLogger {
	return &TraceLogger{
		writer:  w,
		enabled: true,
		now:     time.Now,
	}
}

// LogEvent records one event.
func (t *TraceLogger) LogEvent(ev probe.RawEvent) {
	if !t.enabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.writer, "[TRACE %s] pid=%d path=%d ts=%d %-5s %q\n",
		t.now().Format("15:04:05.000"), ev.PID, ev.PathID, ev.Timestamp, ev.Kind, ev.Name)
}

// defaultTraceWriter returns stderr for trace output.
func defaultTraceWriter() io.Writer {
	return os.Stderr
}
