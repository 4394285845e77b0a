package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"Users_Cache/internal/logger"
	"Users_Cache/internal/models"
)

// ErrServerClosed is returned by Start and Serve after Shutdown
var ErrServerClosed = errors.New("rpc: server closed")

// Server accepts TCP connections and answers framed requests through a Router
type Server struct {
	addr   string
	router *Router
	logger logger.Service

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}

	wg      sync.WaitGroup
	closing atomic.Bool
	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewServer creates a server that will listen on addr
func NewServer(addr string, router *Router, logger logger.Service) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:    addr,
		router:  router,
		logger:  logger,
		conns:   make(map[net.Conn]struct{}),
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Start listens on the configured address and serves until Shutdown
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Serve accepts connections on listener until Shutdown
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	if s.closing.Load() {
		_ = listener.Close()
		return ErrServerClosed
	}

	ctx := logger.WithLogEvent(s.baseCtx, logger.NewInternalLogEvent())
	s.logger.LogInfo(ctx, logger.OpServerStart, "Starting RPC server", map[string]interface{}{
		"addr": listener.Addr().String(),
	})

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.closing.Load() {
				return ErrServerClosed
			}
			return err
		}

		if !s.track(conn) {
			_ = conn.Close()
			return ErrServerClosed
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// Addr returns the listening address, or nil before Serve is called
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting, lets in-flight commands finish and closes every connection.
// If ctx expires first the remaining connections are closed forcibly.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closing.Store(true)
	s.logger.LogInfo(ctx, logger.OpServerShutdown, "Shutting down RPC server", nil)

	s.mu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	// wake readers blocked on idle connections
	for conn := range s.conns {
		_ = conn.SetReadDeadline(time.Now())
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		s.mu.Lock()
		for conn := range s.conns {
			_ = conn.Close()
		}
		s.mu.Unlock()
		return ctx.Err()
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing.Load() {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()

	clientIP := remoteIP(conn.RemoteAddr())
	ctx := logger.WithLogEvent(s.baseCtx, logger.NewCommandLogEvent(clientIP))

	// requests on this connection must finish before it is closed
	var inflight sync.WaitGroup
	defer func() {
		inflight.Wait()
		_ = conn.Close()
		s.untrack(conn)
	}()

	decoder := NewDecoder(conn)
	encoder := NewEncoder(conn)

	for {
		raw, err := decoder.Decode()
		if err != nil {
			if errors.Is(err, ErrMalformedMessage) {
				s.logger.LogError(ctx, logger.OpConnection, "", "Discarding malformed message", err, models.LogSeverityLow, nil)
				continue
			}
			if !s.closing.Load() && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.LogError(ctx, logger.OpConnection, "", "Closing connection", err, models.LogSeverityLow, map[string]interface{}{
					"client_ip": clientIP,
				})
			}
			return
		}

		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			s.logger.LogError(ctx, logger.OpConnection, "", "Discarding malformed request", err, models.LogSeverityLow, nil)
			continue
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			s.handleRequest(encoder, clientIP, &req)
		}()
	}
}

func (s *Server) handleRequest(encoder *Encoder, clientIP string, req *Request) {
	result, err := s.router.Dispatch(s.baseCtx, &Command{
		Pattern:  req.Pattern,
		Data:     req.Data,
		ClientIP: clientIP,
	})
	if req.IsEvent() {
		return
	}

	resp := &Response{ID: req.ID, IsDisposed: true}
	if err != nil {
		resp.Err = models.AsRPCError(err)
	} else {
		resp.Response, resp.Err = marshalResult(result)
	}

	if err := encoder.Encode(resp); err != nil {
		ctx := logger.WithLogEvent(s.baseCtx, logger.NewCommandLogEvent(clientIP))
		s.logger.LogError(ctx, logger.OpConnection, "", "Failed to write response", err, models.LogSeverityLow, map[string]interface{}{
			"pattern": req.Pattern,
		})
	}
}

func marshalResult(result interface{}) (json.RawMessage, *models.RPCError) {
	if result == nil {
		return nullResult, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, models.AsRPCError(err)
	}
	return data, nil
}

func remoteIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
