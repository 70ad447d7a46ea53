package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/1broseidon/winstate/internal/config"
	"github.com/1broseidon/winstate/internal/event"
	"github.com/1broseidon/winstate/internal/ipc"
	"github.com/1broseidon/winstate/internal/lifecycle"
	"github.com/1broseidon/winstate/internal/tui"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "windows":
		os.Exit(runWindows(os.Args[2:]))
	case "create":
		os.Exit(runCreate(os.Args[2:]))
	case "close":
		os.Exit(runClose(os.Args[2:]))
	case "watch":
		os.Exit(runWatch(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "replay":
		os.Exit(runReplay(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: winstate <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the winstate daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  reload              Reload daemon configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  windows             List tracked windows")
	fmt.Fprintln(w, "  create              Open a window")
	fmt.Fprintln(w, "  close <id>          Close a window")
	fmt.Fprintln(w, "  watch               Live window table")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  replay <trace>      Fold a recorded event trace and report")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'winstate <command> --help' for command-specific options.")
}

// newFlagSet returns a flag set whose usage prints usage, desc and the flags.
func newFlagSet(name, usage, desc string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: "+usage)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, desc)
		hasFlags := false
		fs.VisitAll(func(*flag.Flag) { hasFlags = true })
		if hasFlags {
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Flags:")
			fs.PrintDefaults()
		}
	}
	return fs
}

// parseFlags returns -1 when parsing succeeded, otherwise the exit code.
func parseFlags(fs *flag.FlagSet, args []string) int {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	return -1
}

func newClient(socket string) *ipc.Client {
	if socket != "" {
		return ipc.NewClientAt(socket)
	}
	return ipc.NewClient()
}

func runStatus(args []string) int {
	fs := newFlagSet("status", "winstate status [--socket PATH]", "Show daemon status via IPC.")
	socket := fs.String("socket", "", "Daemon socket path (default: $XDG_RUNTIME_DIR/winstate.sock)")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	status, err := newClient(*socket).GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("daemon_running:       %v\n", status.DaemonRunning)
	fmt.Printf("backend:              %s\n", status.Backend)
	fmt.Printf("uptime_seconds:       %d\n", status.UptimeSeconds)
	fmt.Printf("close_when_requested: %v\n", status.CloseWhenRequested)
	fmt.Printf("windows:              %d\n", status.Windows)

	states := make([]string, 0, len(status.States))
	for name := range status.States {
		states = append(states, name)
	}
	sort.Strings(states)
	for _, name := range states {
		fmt.Printf("  %-19s %d\n", name+":", status.States[name])
	}
	fmt.Printf("violations:           %d\n", status.Violations)
	fmt.Printf("events:               %d\n", status.Events)
	fmt.Printf("subscribers:          %d\n", status.Subscribers)
	return 0
}

func runReload(args []string) int {
	fs := newFlagSet("reload", "winstate reload [--socket PATH]", "Ask the daemon to re-read its configuration file.")
	socket := fs.String("socket", "", "Daemon socket path")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if err := newClient(*socket).Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runWindows(args []string) int {
	fs := newFlagSet("windows", "winstate windows [--json] [--state STATE] [--socket PATH]", "List the windows tracked by the daemon.")
	socket := fs.String("socket", "", "Daemon socket path")
	jsonOut := fs.Bool("json", false, "Output full records as JSON")
	stateFilter := fs.String("state", "", "Only list windows in this state (requested, live, close-requested, closed)")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "windows takes no arguments")
		fs.Usage()
		return 2
	}

	var want lifecycle.State
	if *stateFilter != "" {
		if err := want.UnmarshalText([]byte(*stateFilter)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
	}

	records, err := newClient(*socket).ListWindows()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *stateFilter != "" {
		kept := records[:0]
		for _, rec := range records {
			if rec.State == want {
				kept = append(kept, rec)
			}
		}
		records = kept
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATE\tTITLE\tSIZE\tPOSITION\tFOCUSED\tSCALE")
	for _, rec := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%gx%g\t%d,%d\t%v\t%g\n",
			rec.ID, rec.State, rec.Descriptor.Title,
			rec.Size.Width, rec.Size.Height,
			rec.Position.X, rec.Position.Y,
			rec.Focused, rec.EffectiveScaleFactor())
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runCreate(args []string) int {
	fs := newFlagSet("create", "winstate create [flags]",
		"Open a window through the daemon. Without flags the daemon's default_window is used.")
	socket := fs.String("socket", "", "Daemon socket path")
	title := fs.String("title", "", "Window title")
	width := fs.Float64("width", 0, "Logical width")
	height := fs.Float64("height", 0, "Logical height")
	mode := fs.String("mode", "", "windowed, borderless-fullscreen, sized-fullscreen or fullscreen")
	position := fs.String("position", "", "Initial position in physical pixels, X,Y")
	fixed := fs.Bool("fixed", false, "Not resizable")
	undecorated := fs.Bool("undecorated", false, "No window manager frame")
	scale := fs.Float64("scale", 0, "Scale factor override")
	interactive := fs.Bool("interactive", false, "Edit the descriptor in a form")
	wait := fs.Duration("wait", 0, "Wait up to this long for the window to become live")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "create takes no arguments")
		fs.Usage()
		return 2
	}

	custom := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name != "socket" && f.Name != "wait" {
			custom = true
		}
	})

	var desc *event.Descriptor
	if custom {
		d := event.DefaultDescriptor()
		if cfg, err := config.Load(); err == nil {
			d = cfg.DefaultWindow.Clone()
		}
		if *title != "" {
			d.Title = *title
		}
		if *width > 0 {
			d.Width = *width
		}
		if *height > 0 {
			d.Height = *height
		}
		if *mode != "" {
			d.Mode = event.WindowMode(*mode)
		}
		if *position != "" {
			p, err := parsePosition(*position)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 2
			}
			d.Position = &p
		}
		if *fixed {
			d.Resizable = false
		}
		if *undecorated {
			d.Decorations = false
		}
		if *scale > 0 {
			s := *scale
			d.ScaleFactorOverride = &s
		}
		if *interactive {
			edited, err := tui.EditDescriptor(d)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			d = edited
		}
		if err := d.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		desc = &d
	}

	client := newClient(*socket)
	id, err := client.CreateWindow(desc)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(uint32(id))

	if *wait > 0 {
		if err := waitLive(client, id, *wait); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	return 0
}

func parsePosition(s string) (event.PhysicalPoint, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return event.PhysicalPoint{}, fmt.Errorf("position must be X,Y, got %q", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return event.PhysicalPoint{}, fmt.Errorf("invalid position x: %w", err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return event.PhysicalPoint{}, fmt.Errorf("invalid position y: %w", err)
	}
	return event.PhysicalPoint{X: x, Y: y}, nil
}

func waitLive(client *ipc.Client, id event.WindowID, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		rec, err := client.GetWindow(id)
		if err == nil && rec.State != lifecycle.StateRequested {
			if rec.State != lifecycle.StateLive {
				return fmt.Errorf("window %d is %s", id, rec.State)
			}
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("window %d not live after %s", id, timeout)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func runClose(args []string) int {
	fs := newFlagSet("close", "winstate close [--socket PATH] <id>", "Destroy a window.")
	socket := fs.String("socket", "", "Daemon socket path")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "close requires <id>")
		fs.Usage()
		return 2
	}
	id, err := strconv.ParseUint(fs.Arg(0), 10, 32)
	if err != nil || id == 0 {
		fmt.Fprintf(os.Stderr, "invalid window id %q\n", fs.Arg(0))
		return 2
	}

	if err := newClient(*socket).CloseWindow(event.WindowID(id)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runWatch(args []string) int {
	fs := newFlagSet("watch", "winstate watch [--kinds K1,K2] [--window ID] [--socket PATH]",
		"Live table of tracked windows with a tail of recent events.\n\n"+
			"Keybindings:\n"+
			"  ↑/↓   Select window\n"+
			"  x     Close selected window\n"+
			"  r     Refresh\n"+
			"  q     Quit")
	socket := fs.String("socket", "", "Daemon socket path")
	kinds := fs.String("kinds", "", "Comma-separated event kinds to show in the log")
	window := fs.Uint("window", 0, "Only show events for this window")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}

	filter := ipc.SubscribePayload{Window: uint32(*window)}
	if *kinds != "" {
		for _, k := range strings.Split(*kinds, ",") {
			filter.Kinds = append(filter.Kinds, strings.TrimSpace(k))
		}
	}

	client := newClient(*socket)
	if err := client.Ping(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := tui.Watch(client, filter); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
