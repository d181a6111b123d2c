package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/swdkit/swd-go/pkg/bitfield"
	"github.com/swdkit/swd-go/pkg/log"
	"github.com/swdkit/swd-go/pkg/wire"
)

// DefaultPort is the default memory server port.
const DefaultPort = 4242

// ServerConfig configures a memory server.
type ServerConfig struct {
	// Address to listen on (e.g., ":4242" or "127.0.0.1:0").
	Address string

	// Driver executes the memory accesses. Required.
	Driver bitfield.MemoryDriver

	// Target names the served device in log events.
	Target string

	// MaxMessageSize is the maximum frame size (default: 4 KB).
	MaxMessageSize uint32

	// Logger captures frames and accesses (optional).
	Logger log.Logger

	// SlogLogger is the optional logger for debug output.
	// If nil, debug logging is disabled.
	SlogLogger *slog.Logger

	// OnConnect is called when a new connection is established.
	OnConnect func(conn *ServerConn)

	// OnDisconnect is called when a connection is closed.
	OnDisconnect func(conn *ServerConn)

	// OnError is called when an error occurs.
	OnError func(conn *ServerConn, err error)
}

// Server exposes a MemoryDriver to TCP clients.
type Server struct {
	config   ServerConfig
	listener net.Listener

	conns   map[*ServerConn]struct{}
	connsMu sync.RWMutex

	// Drivers are single-owner; every access goes through driverMu.
	driverMu sync.Mutex

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a new memory server.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Driver == nil {
		return nil, fmt.Errorf("driver is required")
	}
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	return &Server{
		config: config,
		conns:  make(map[*ServerConn]struct{}),
	}, nil
}

// Start starts listening and accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return ErrServerRunning
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running.Store(true)

	s.logState("", "", "LISTENING", listener.Addr().String())
	s.debugLog("server started", "addr", listener.Addr().String(), "target", s.config.Target)

	s.wg.Add(1)
	go s.acceptLoop()

	// Stop when the parent context ends.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-s.ctx.Done()
		s.shutdown()
	}()

	return nil
}

// Stop stops the server, closes all connections and waits for handlers.
func (s *Server) Stop() error {
	if !s.running.Load() {
		return nil
	}
	s.cancel()
	s.wg.Wait()
	return nil
}

func (s *Server) shutdown() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	_ = s.listener.Close()

	s.connsMu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.connsMu.Unlock()

	s.logState("LISTENING", "", "STOPPED", "")
	s.debugLog("server stopped")
}

// Addr returns the server's listen address.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}
			s.reportError(nil, fmt.Errorf("accept error: %w", err))
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	connID := uuid.New().String()
	framer := NewFramer(conn, s.config.MaxMessageSize)
	if s.config.Logger != nil {
		framer.SetLogger(s.config.Logger, connID, s.config.Target)
	}

	sconn := &ServerConn{
		conn:       conn,
		framer:     framer,
		server:     s,
		closeCh:    make(chan struct{}),
		remoteAddr: conn.RemoteAddr(),
		connID:     connID,
	}

	s.connsMu.Lock()
	if !s.running.Load() {
		s.connsMu.Unlock()
		_ = conn.Close()
		return
	}
	s.conns[sconn] = struct{}{}
	s.connsMu.Unlock()

	s.logState(connID, "", "CONNECTED", conn.RemoteAddr().String())
	s.debugLog("client connected", "conn", connID, "remote", conn.RemoteAddr().String())
	if s.config.OnConnect != nil {
		s.config.OnConnect(sconn)
	}

	sconn.serve()
	_ = sconn.Close()

	s.connsMu.Lock()
	delete(s.conns, sconn)
	s.connsMu.Unlock()

	s.logState(connID, "CONNECTED", "DISCONNECTED", conn.RemoteAddr().String())
	s.debugLog("client disconnected", "conn", connID, "requests", sconn.Requests())
	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(sconn)
	}
}

// execute runs one validated request against the driver.
func (s *Server) execute(req *wire.Request) *wire.Response {
	s.driverMu.Lock()
	defer s.driverMu.Unlock()

	drv := s.config.Driver
	resp := &wire.Response{MessageID: req.MessageID}

	var err error
	switch req.Operation {
	case wire.OpReadMem:
		var data []byte
		data, err = drv.ReadMem(req.Address, req.Size)
		if err == nil && uint32(len(data)) != req.Size {
			err = shortRead(req.Address, len(data), int(req.Size))
		}
		resp.Data = data
	case wire.OpWriteMem:
		err = drv.WriteMem(req.Address, req.Data)
	case wire.OpGetMem32:
		resp.Value, err = drv.GetMem32(req.Address)
	case wire.OpSetMem32:
		err = drv.SetMem32(req.Address, req.Value)
	}

	resp.Status = StatusFor(err)
	if err != nil {
		resp.Data = nil
		resp.Value = 0
		resp.Message = err.Error()
	}
	return resp
}

func (s *Server) logState(connID, oldState, newState, remote string) {
	if s.config.Logger == nil {
		return
	}
	entity := log.StateEntityConnection
	if connID == "" {
		entity = log.StateEntityServer
	}
	s.config.Logger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  connID,
		Layer:      log.LayerTransport,
		Category:   log.CategoryState,
		Target:     s.config.Target,
		RemoteAddr: remote,
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
		},
	})
}

func (s *Server) reportError(conn *ServerConn, err error) {
	s.debugLog("server error", "error", err)
	if s.config.OnError != nil {
		s.config.OnError(conn, err)
	}
}

func (s *Server) debugLog(msg string, args ...any) {
	if s.config.SlogLogger != nil {
		s.config.SlogLogger.Debug(msg, args...)
	}
}

// ServerConn is one client connection to the server.
type ServerConn struct {
	conn       net.Conn
	framer     *Framer
	server     *Server
	closeCh    chan struct{}
	closeOnce  sync.Once
	remoteAddr net.Addr
	connID     string
	requests   atomic.Uint64
}

// RemoteAddr returns the remote address of the client.
func (c *ServerConn) RemoteAddr() net.Addr {
	return c.remoteAddr
}

// ConnID returns the unique connection identifier.
func (c *ServerConn) ConnID() string {
	return c.connID
}

// Requests returns the number of requests answered on this connection.
func (c *ServerConn) Requests() uint64 {
	return c.requests.Load()
}

// Close closes the connection.
func (c *ServerConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

// serve answers requests until the peer goes away or the server stops.
func (c *ServerConn) serve() {
	for {
		data, err := c.framer.ReadFrame()
		if err != nil {
			if err != io.EOF && !c.closing() {
				c.server.reportError(c, err)
			}
			return
		}

		resp := c.handle(data)
		out, err := wire.EncodeResponse(resp)
		if err == nil {
			err = c.framer.WriteFrame(out)
		}
		if err != nil {
			if !c.closing() {
				c.server.reportError(c, fmt.Errorf("failed to send response: %w", err))
			}
			return
		}
		c.requests.Add(1)
	}
}

func (c *ServerConn) handle(data []byte) *wire.Response {
	start := time.Now()

	req, err := wire.DecodeRequest(data)
	if err != nil {
		resp := &wire.Response{Status: wire.StatusInvalidRequest, Message: err.Error()}
		if req != nil {
			resp.MessageID = req.MessageID
		}
		c.logInvalid(req, err)
		return resp
	}

	resp := c.server.execute(req)
	c.logAccess(req, resp, time.Since(start))
	return resp
}

func (c *ServerConn) closing() bool {
	select {
	case <-c.closeCh:
		return true
	default:
		return !c.server.running.Load()
	}
}

func (c *ServerConn) logAccess(req *wire.Request, resp *wire.Response, d time.Duration) {
	logger := c.server.config.Logger
	if logger == nil {
		return
	}
	dir := log.DirectionIn
	if req.Operation.IsWrite() {
		dir = log.DirectionOut
	}
	status := resp.Status
	acc := &log.AccessEvent{
		Operation: req.Operation,
		MessageID: req.MessageID,
		Address:   req.Address,
		Status:    &status,
		Duration:  d,
	}
	switch req.Operation {
	case wire.OpReadMem:
		acc.Size = req.Size
		acc.Data = resp.Data
	case wire.OpWriteMem:
		acc.Size = uint32(len(req.Data))
		acc.Data = req.Data
	case wire.OpGetMem32:
		acc.Size = 4
		if resp.IsSuccess() {
			v := resp.Value
			acc.Value = &v
		}
	case wire.OpSetMem32:
		acc.Size = 4
		v := req.Value
		acc.Value = &v
	}
	logger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  c.connID,
		Direction:  dir,
		Layer:      log.LayerWire,
		Category:   log.CategoryAccess,
		Target:     c.server.config.Target,
		RemoteAddr: c.remoteAddr.String(),
		Access:     acc,
	})
}

func (c *ServerConn) logInvalid(req *wire.Request, err error) {
	logger := c.server.config.Logger
	if logger == nil {
		return
	}
	data := &log.ErrorEventData{Layer: log.LayerWire, Message: err.Error()}
	if req != nil {
		op := req.Operation
		addr := req.Address
		data.Operation = &op
		data.Address = &addr
	}
	logger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  c.connID,
		Layer:      log.LayerWire,
		Category:   log.CategoryError,
		Target:     c.server.config.Target,
		RemoteAddr: c.remoteAddr.String(),
		Error:      data,
	})
}
