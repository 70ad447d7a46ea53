package trace

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/winstate/internal/dispatch"
	"github.com/1broseidon/winstate/internal/event"
	"github.com/1broseidon/winstate/internal/lifecycle"
)

const sample = `
- {kind: CreateWindow, window: 1, descriptor: {title: demo, width: 640, height: 480, mode: windowed, resizable: true}}
- {kind: WindowCreated, window: 1}
- {kind: WindowResized, window: 1, width: 800, height: 600}
- {kind: WindowMoved, window: 1, x: 10, y: 20}
- {kind: WindowFocused, window: 1, focused: true}
- {kind: ReceivedCharacter, window: 1, char: "h"}
- {kind: ReceivedCharacter, window: 1, char: "i"}
- {kind: FileDragAndDrop, window: 1, action: dropped, path: /tmp/a.txt}
- {kind: RequestRedraw}
- {kind: WindowResized, window: 2, width: 1, height: 1}
- {kind: WindowCloseRequested, window: 1}
- {kind: WindowClosed, window: 1}
- {kind: WindowFocused, window: 1, focused: false}
`

func TestParse_Sample(t *testing.T) {
	evs, err := Parse([]byte(sample), "sample.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(evs) != 13 {
		t.Fatalf("parsed %d events, want 13", len(evs))
	}
	create, ok := evs[0].(event.CreateWindow)
	if !ok || create.Descriptor.Title != "demo" || create.Descriptor.Width != 640 {
		t.Fatalf("first event = %#v", evs[0])
	}
	if evs[3] != (event.WindowMoved{ID: 1, Position: event.PhysicalPoint{X: 10, Y: 20}}) {
		t.Fatalf("move = %#v", evs[3])
	}
	if evs[7] != event.Dropped(1, "/tmp/a.txt") {
		t.Fatalf("drop = %#v", evs[7])
	}
	if evs[8] != (event.RequestRedraw{}) {
		t.Fatalf("redraw = %#v", evs[8])
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		data string
		want string
	}{
		{"not a sequence", "kind: WindowCreated\n", "must be a sequence"},
		{"unknown kind", "- {kind: WindowExploded, window: 1}\n", "t.yaml:1:"},
		{"missing window", "- {kind: WindowCreated}\n", "event 0"},
		{"two chars", "- {kind: WindowCreated, window: 1}\n- {kind: ReceivedCharacter, window: 1, char: ab}\n", "t.yaml:2:"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data), "t.yaml")
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want containing %q", err, tc.want)
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	evs, err := Parse([]byte("# nothing\n"), "empty.yaml")
	if err != nil || len(evs) != 0 {
		t.Fatalf("Parse = %v, %v", evs, err)
	}
}

func TestWriteThenParse(t *testing.T) {
	want, err := Parse([]byte(sample), "sample.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var buf bytes.Buffer
	if err := Write(&buf, want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Parse(buf.Bytes(), "written.yaml")
	if err != nil {
		t.Fatalf("Parse written: %v\n%s", err, buf.String())
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("written trace differs:\n%s", buf.String())
	}
}

func TestReplay_Report(t *testing.T) {
	evs, err := Parse([]byte(sample), "sample.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r := Replay(evs)

	if r.Events != 13 || r.Accepted != 11 || r.Redraws != 1 {
		t.Fatalf("report counts = %+v", r)
	}
	if len(r.Violations) != 2 {
		t.Fatalf("violations = %v", r.Violations)
	}
	if !errors.Is(r.Violations[0], lifecycle.ErrUnknownIdentity) {
		t.Fatalf("first violation = %v", r.Violations[0])
	}
	if !errors.Is(r.Violations[1], lifecycle.ErrIllegalTransition) {
		t.Fatalf("second violation = %v", r.Violations[1])
	}

	if len(r.Records) != 1 {
		t.Fatalf("records = %+v", r.Records)
	}
	rec := r.Records[0]
	if rec.State != lifecycle.StateClosed || rec.Size.Width != 800 || rec.Chars != 2 || len(rec.DroppedFiles) != 1 {
		t.Fatalf("record = %+v", rec)
	}

	var out bytes.Buffer
	if err := r.Print(&out); err != nil {
		t.Fatalf("Print: %v", err)
	}
	for _, want := range []string{"accepted 11", "closed", "demo", "800x600", "Violations:"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("report missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	r.Dump(&out)
	if !strings.Contains(out.String(), "/tmp/a.txt") {
		t.Fatalf("dump missing dropped file:\n%s", out.String())
	}
}

func TestReplay_EvictClosed(t *testing.T) {
	evs, _ := Parse([]byte(sample), "sample.yaml")
	r := Replay(evs, lifecycle.WithEvictClosed(true))
	if len(r.Records) != 0 {
		t.Fatalf("records = %+v, want none", r.Records)
	}
}

func TestRecord_WritesReplayableTrace(t *testing.T) {
	b := dispatch.NewBroadcaster()
	sub := b.Subscribe("recorder")
	path := filepath.Join(t.TempDir(), "trace.yaml")

	done := make(chan error, 1)
	go func() {
		done <- Record(context.Background(), path, sub, testLogger())
	}()

	want := []event.Event{
		event.CreateWindow{ID: 3, Descriptor: event.DefaultDescriptor()},
		event.WindowCreated{ID: 3},
		event.WindowScaleFactorChanged{ID: 3, ScaleFactor: 1.5},
	}
	for _, ev := range want {
		b.Publish(ev)
	}
	b.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Record did not stop")
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("trace not written: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("recorded %#v, want %#v", got, want)
	}
}

type failingWriter struct{}

var errDiskFull = errors.New("disk full")

func (failingWriter) Write([]byte) (int, error) { return 0, errDiskFull }

func TestRecord_ReportsWriteErrors(t *testing.T) {
	b := dispatch.NewBroadcaster()
	sub := b.Subscribe("recorder")
	b.Publish(event.RequestRedraw{})
	b.Close()

	n, err := recordTo(context.Background(), failingWriter{}, sub, testLogger())
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("recordTo err = %v, want %v", err, errDiskFull)
	}
	if n != 1 {
		t.Fatalf("recorded %d events, want 1", n)
	}
}
