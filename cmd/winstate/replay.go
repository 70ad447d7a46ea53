package main

import (
	"fmt"
	"os"

	"github.com/1broseidon/winstate/internal/lifecycle"
	"github.com/1broseidon/winstate/internal/runtimepath"
	"github.com/1broseidon/winstate/internal/trace"
)

func runReplay(args []string) int {
	fs := newFlagSet("replay", "winstate replay [--dump] [--evict] [--strict] [trace.yaml]",
		"Fold a recorded event trace through the lifecycle model and print the final\n"+
			"window records and any violations. Defaults to the daemon's --record file.")
	dump := fs.Bool("dump", false, "Dump full records")
	evict := fs.Bool("evict", false, "Evict closed windows while folding")
	strict := fs.Bool("strict", false, "Exit 1 when the trace has violations")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "replay takes at most one trace file")
		fs.Usage()
		return 2
	}

	path := fs.Arg(0)
	if path == "" {
		var err error
		if path, err = runtimepath.RecordingPath(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	events, err := trace.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	report := trace.Replay(events, lifecycle.WithEvictClosed(*evict))
	if err := report.Print(os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *dump {
		fmt.Println()
		report.Dump(os.Stdout)
	}
	if *strict && len(report.Violations) > 0 {
		return 1
	}
	return 0
}
