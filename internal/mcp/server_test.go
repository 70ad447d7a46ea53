package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/winstate/internal/event"
	"github.com/1broseidon/winstate/internal/lifecycle"
)

type fakeWindows struct {
	model   *lifecycle.Model
	alloc   event.IDAllocator
	created []*event.Descriptor
	closed  []event.WindowID
}

func newFakeWindows() *fakeWindows {
	return &fakeWindows{model: lifecycle.NewModel()}
}

func (f *fakeWindows) ListWindows() ([]lifecycle.Record, error) {
	return f.model.Snapshot(), nil
}

func (f *fakeWindows) GetWindow(id event.WindowID) (*lifecycle.Record, error) {
	rec, ok := f.model.Lookup(id)
	if !ok {
		return nil, errors.New("unknown window")
	}
	return &rec, nil
}

func (f *fakeWindows) CreateWindow(desc *event.Descriptor) (event.WindowID, error) {
	f.created = append(f.created, desc)
	use := event.DefaultDescriptor()
	if desc != nil {
		use = *desc
	}
	id := f.alloc.Next()
	f.model.Apply(event.CreateWindow{ID: id, Descriptor: use})
	f.model.Apply(event.WindowCreated{ID: id})
	return id, nil
}

func (f *fakeWindows) CloseWindow(id event.WindowID) error {
	if _, err := f.model.Apply(event.WindowClosed{ID: id}); err != nil {
		return err
	}
	f.closed = append(f.closed, id)
	return nil
}

func newTestServer(svc WindowService) *Server {
	return NewServer(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateWindowInputDescriptor(t *testing.T) {
	boolPtr := func(b bool) *bool { return &b }

	desc, err := CreateWindowInput{}.descriptor()
	if err != nil || desc != nil {
		t.Fatalf("empty input = %v, %v; want nil, nil", desc, err)
	}

	desc, err = CreateWindowInput{Title: "tool", Width: 300, Resizable: boolPtr(false)}.descriptor()
	if err != nil {
		t.Fatalf("descriptor: %v", err)
	}
	if desc.Title != "tool" || desc.Width != 300 || desc.Height != 720 || desc.Resizable {
		t.Fatalf("descriptor = %+v", desc)
	}
	if desc.Mode != event.ModeWindowed {
		t.Fatalf("mode = %q, want windowed", desc.Mode)
	}

	if _, err := (CreateWindowInput{Mode: "maximized"}).descriptor(); err == nil {
		t.Fatalf("expected unknown mode to fail")
	}
	neg := -1.0
	if _, err := (CreateWindowInput{ScaleFactor: &neg}).descriptor(); err == nil {
		t.Fatalf("expected negative scale factor to fail")
	}
}

func TestToolHandlers(t *testing.T) {
	ctx := context.Background()
	svc := newFakeWindows()
	s := newTestServer(svc)

	_, created, err := s.handleCreateWindow(ctx, nil, CreateWindowInput{Title: "first"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, second, err := s.handleCreateWindow(ctx, nil, CreateWindowInput{})
	if err != nil {
		t.Fatalf("create default: %v", err)
	}
	if created.Window == second.Window {
		t.Fatalf("duplicate identities %d", created.Window)
	}
	if svc.created[1] != nil {
		t.Fatalf("empty input sent a descriptor: %+v", svc.created[1])
	}

	if _, _, err := s.handleCloseWindow(ctx, nil, CloseWindowInput{Window: second.Window}); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, list, err := s.handleListWindows(ctx, nil, ListWindowsInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Count != 2 {
		t.Fatalf("count = %d, want 2", list.Count)
	}
	sort.Slice(list.Windows, func(i, j int) bool { return list.Windows[i].Window < list.Windows[j].Window })
	if list.Windows[0].Title != "first" || list.Windows[0].State != "live" {
		t.Fatalf("first window = %+v", list.Windows[0])
	}

	_, live, err := s.handleListWindows(ctx, nil, ListWindowsInput{State: "closed"})
	if err != nil {
		t.Fatalf("list closed: %v", err)
	}
	if live.Count != 1 || live.Windows[0].Window != second.Window {
		t.Fatalf("closed windows = %+v", live.Windows)
	}

	if _, _, err := s.handleListWindows(ctx, nil, ListWindowsInput{State: "sleeping"}); err == nil {
		t.Fatalf("expected unknown state filter to fail")
	}

	_, got, err := s.handleGetWindow(ctx, nil, GetWindowInput{Window: created.Window})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Record.Descriptor.Title != "first" {
		t.Fatalf("record = %+v", got.Record)
	}

	if _, _, err := s.handleGetWindow(ctx, nil, GetWindowInput{}); err == nil {
		t.Fatalf("expected missing window to fail")
	}
	if _, _, err := s.handleCloseWindow(ctx, nil, CloseWindowInput{Window: 99}); err == nil {
		t.Fatalf("expected unknown window close to fail")
	}
}

func TestServerListsTools(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(newFakeWindows())

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()
	serverSession, err := s.mcpServer.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer serverSession.Close()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test", Version: "0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := make(map[string]bool)
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"list_windows", "get_window", "create_window", "close_window"} {
		if !names[want] {
			t.Errorf("tool %q not registered", want)
		}
	}

	call, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "create_window",
		Arguments: map[string]any{"title": "from client"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if call.IsError {
		t.Fatalf("create_window returned a tool error: %+v", call.Content)
	}
}
