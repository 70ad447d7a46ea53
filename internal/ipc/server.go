package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"

	"github.com/1broseidon/winstate/internal/dispatch"
	"github.com/1broseidon/winstate/internal/event"
	"github.com/1broseidon/winstate/internal/lifecycle"
	"github.com/1broseidon/winstate/internal/runtimepath"
)

// Service is the daemon side of the IPC protocol.
type Service interface {
	Status() StatusData
	Windows() []lifecycle.Record
	Window(id event.WindowID) (lifecycle.Record, bool)
	// CreateWindow opens a window; nil uses the configured default.
	CreateWindow(ctx context.Context, desc *event.Descriptor) (event.WindowID, error)
	CloseWindow(ctx context.Context, id event.WindowID) error
	Subscribe(name string) *dispatch.Subscription
	Reload() error
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	svc          Service
	ctx          context.Context
	cancel       context.CancelFunc
	shuttingDown bool
	shutdownMu   sync.Mutex
	conns        sync.WaitGroup
}

// NewServer creates an IPC server on the runtime socket path.
func NewServer(svc Service) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return NewServerAt(socketPath, svc), nil
}

// NewServerAt creates an IPC server on socketPath.
func NewServerAt(socketPath string, svc Service) *Server {
	// Remove existing socket if present
	os.Remove(socketPath)

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		socketPath: socketPath,
		svc:        svc,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	go s.acceptLoop()
	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("IPC accept error: %v", err)
			continue
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	if req.Command == CommandSubscribe {
		s.handleSubscribe(conn, reader, req.Payload)
		return
	}

	resp := s.handleCommand(req)
	if err := writeResponse(conn, resp); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandListWindows:
		return s.handleListWindows()
	case CommandGetWindow:
		return s.handleGetWindow(req.Payload)
	case CommandCreate:
		return s.handleCreate(req.Payload)
	case CommandClose:
		return s.handleClose(req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleReload() *Response {
	log.Println("IPC: Received RELOAD command")
	if err := s.svc.Reload(); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}
	log.Println("IPC: Config reloaded successfully")

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleGetStatus() *Response {
	status := s.svc.Status()
	status.DaemonRunning = true
	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleListWindows() *Response {
	windows := s.svc.Windows()
	if windows == nil {
		windows = []lifecycle.Record{}
	}
	resp, err := NewOKResponse(WindowsData{Windows: windows})
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func (s *Server) handleGetWindow(payload json.RawMessage) *Response {
	id, errResp := parseWindow(payload)
	if errResp != nil {
		return errResp
	}
	rec, ok := s.svc.Window(id)
	if !ok {
		return NewErrorResponse(fmt.Sprintf("Unknown window: %d", id))
	}
	resp, err := NewOKResponse(rec)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func (s *Server) handleCreate(payload json.RawMessage) *Response {
	var req CreateWindowPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid create payload: %v", err))
		}
	}

	id, err := s.svc.CreateWindow(s.ctx, req.Descriptor)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to create window: %v", err))
	}
	log.Printf("IPC: Created window %d", id)

	resp, _ := NewOKResponse(CreateWindowData{Window: uint32(id)})
	return resp
}

func (s *Server) handleClose(payload json.RawMessage) *Response {
	id, errResp := parseWindow(payload)
	if errResp != nil {
		return errResp
	}
	if err := s.svc.CloseWindow(s.ctx, id); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to close window: %v", err))
	}
	log.Printf("IPC: Closed window %d", id)

	resp, _ := NewOKResponse(nil)
	return resp
}

// handleSubscribe streams events, one JSON line each, after an OK response
// line. It returns when the client disconnects or the stream ends.
func (s *Server) handleSubscribe(conn net.Conn, reader *bufio.Reader, payload json.RawMessage) {
	var req SubscribePayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			s.sendError(conn, fmt.Sprintf("Invalid subscribe payload: %v", err))
			return
		}
	}
	f, err := req.compile()
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid subscribe payload: %v", err))
		return
	}

	sub := s.svc.Subscribe(conn.RemoteAddr().String())
	defer sub.Close()

	resp, _ := NewOKResponse(nil)
	if err := writeResponse(conn, resp); err != nil {
		return
	}

	// The client sends nothing more; a read returning means it hung up.
	gone := make(chan struct{})
	go func() {
		io.Copy(io.Discard, reader)
		close(gone)
	}()

	for {
		select {
		case <-gone:
			return
		case <-s.ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if !f.match(ev) {
				continue
			}
			line, err := event.Marshal(ev)
			if err != nil {
				log.Printf("IPC: failed to encode %s: %v", ev.Kind(), err)
				continue
			}
			if _, err := conn.Write(append(line, '\n')); err != nil {
				return
			}
		}
	}
}

func parseWindow(payload json.RawMessage) (event.WindowID, *Response) {
	var req WindowPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return 0, NewErrorResponse(fmt.Sprintf("Invalid window payload: %v", err))
	}
	if req.Window == 0 {
		return 0, NewErrorResponse("window is required")
	}
	return event.WindowID(req.Window), nil
}

func writeResponse(w io.Writer, resp *Response) error {
	data, err := resp.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	writeResponse(conn, NewErrorResponse(errMsg))
}

// Stop gracefully shuts down the IPC server and ends open subscriptions.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	if s.shuttingDown {
		s.shutdownMu.Unlock()
		return
	}
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}

// Wait blocks until every open connection has been handled.
func (s *Server) Wait() {
	s.conns.Wait()
}
