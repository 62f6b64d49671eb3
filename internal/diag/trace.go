package diag

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"tickexec/internal/sched"
)

var traceHeader = []string{"tick", "event", "task_id", "name", "reason"}

// CSVTrace streams executor status events as CSV rows.
type CSVTrace struct {
	c   io.Closer
	w   *csv.Writer
	err error
}

// CreateCSVTrace creates (or truncates) path and writes the header.
func CreateCSVTrace(path string) (*CSVTrace, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("diag: create trace: %w", err)
	}
	t := NewCSVTrace(f)
	t.c = f
	if t.err != nil {
		f.Close()
		return nil, t.err
	}
	return t, nil
}

// NewCSVTrace writes the header to w. Close will not close w.
func NewCSVTrace(w io.Writer) *CSVTrace {
	t := &CSVTrace{w: csv.NewWriter(w)}
	t.write(traceHeader)
	return t
}

// Observe records ev. It is a sched.Observer.
func (t *CSVTrace) Observe(ev sched.StatusEvent) {
	t.write([]string{
		strconv.FormatUint(uint64(ev.Tick), 10),
		ev.Kind.String(),
		strconv.Itoa(int(ev.TaskID)),
		ev.Name,
		ev.Reason.String(),
	})
}

func (t *CSVTrace) write(rec []string) {
	if t.err != nil {
		return
	}
	t.w.Write(rec)
	t.w.Flush()
	t.err = t.w.Error()
}

// Err returns the first write error.
func (t *CSVTrace) Err() error { return t.err }

// Close flushes the trace and closes the file it was created with.
func (t *CSVTrace) Close() error {
	t.w.Flush()
	err := t.w.Error()
	if t.c != nil {
		if cerr := t.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// EventLine formats ev for a console.
func EventLine(ev sched.StatusEvent) string {
	center := func(str string, width int) string {
		spaces := (width - len(str)) / 2
		if spaces < 0 {
			return str
		}
		return strings.Repeat(" ", spaces) + str + strings.Repeat(" ", width-(spaces+len(str)))
	}
	line := fmt.Sprintf("Tick: %010d [%s]", ev.Tick, center(ev.Kind.String(), 10))
	switch ev.Kind {
	case sched.StatusSleep, sched.StatusSpurious, sched.StatusHalt:
	default:
		line += fmt.Sprintf(" => Task: %02d (%s)", ev.TaskID, ev.Name)
	}
	if ev.Reason.Kind != sched.WaitNone {
		line += " " + ev.Reason.String()
	}
	return line
}

// Printer returns an observer writing one EventLine per event to w.
func Printer(w io.Writer) sched.Observer {
	return func(ev sched.StatusEvent) {
		fmt.Fprintln(w, EventLine(ev))
	}
}

// Tee fans an event out to every non-nil observer.
func Tee(obs ...sched.Observer) sched.Observer {
	return func(ev sched.StatusEvent) {
		for _, o := range obs {
			if o != nil {
				o(ev)
			}
		}
	}
}
