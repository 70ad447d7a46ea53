package trace

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"

	"github.com/1broseidon/winstate/internal/dispatch"
	"github.com/1broseidon/winstate/internal/event"
	"github.com/1broseidon/winstate/internal/lifecycle"
)

// Report is the outcome of replaying a trace.
type Report struct {
	Events     int
	Accepted   int
	Redraws    int
	Records    []lifecycle.Record
	Violations []*lifecycle.Violation
}

// Replay folds events through a fresh lifecycle model.
func Replay(events []event.Event, opts ...lifecycle.Option) *Report {
	r := &Report{Events: len(events)}
	m := lifecycle.NewModel(opts...)

	h := dispatch.HandlerFuncs{
		Window: func(u dispatch.Update) {
			var v *lifecycle.Violation
			if errors.As(u.Err, &v) {
				r.Violations = append(r.Violations, v)
				return
			}
			r.Accepted++
		},
		Global: func(event.Event) {
			r.Accepted++
			r.Redraws++
		},
	}
	for _, ev := range events {
		dispatch.Step(m, ev, h)
	}
	r.Records = m.Snapshot()
	return r
}

// Print writes a summary table of the final records and the violations.
func (r *Report) Print(w io.Writer) error {
	fmt.Fprintf(w, "Events: %d (accepted %d, violations %d, redraws %d)\n\n",
		r.Events, r.Accepted, len(r.Violations), r.Redraws)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WINDOW\tSTATE\tTITLE\tSIZE\tPOSITION\tFOCUSED\tCHARS")
	for _, rec := range r.Records {
		fmt.Fprintf(tw, "%v\t%s\t%s\t%gx%g\t%d,%d\t%t\t%d\n",
			rec.ID, rec.State, rec.Descriptor.Title,
			rec.Size.Width, rec.Size.Height,
			rec.Position.X, rec.Position.Y,
			rec.Focused, rec.Chars)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Violations) > 0 {
		fmt.Fprintln(w, "\nViolations:")
		for _, v := range r.Violations {
			fmt.Fprintf(w, "  %s\n", v)
		}
	}
	return nil
}

// Dump writes every record in full.
func (r *Report) Dump(w io.Writer) {
	cfg := spew.ConfigState{
		Indent:                  "  ",
		DisablePointerAddresses: true,
		DisableCapacities:       true,
		SortKeys:                true,
	}
	for _, rec := range r.Records {
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", 40))
		cfg.Fdump(w, rec)
	}
}
