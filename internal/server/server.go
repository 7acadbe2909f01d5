// Package server implements the chat relay core: a TCP listener, a
// per-connection authentication handshake, reader and writer goroutines per
// client, and a single central dispatcher that drains the task queue and
// fans broadcasts out to every other authenticated client.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chatrelay/go-chat-relay/internal/hub"
	"github.com/chatrelay/go-chat-relay/internal/logging"
	"github.com/chatrelay/go-chat-relay/internal/metrics"
	"github.com/chatrelay/go-chat-relay/internal/store"
)

const (
	defaultTaskQueueSize = 1024
	defaultOutBufSize    = hub.DefaultOutBufSize
)

// Server owns the TCP listener, the task queue and the client lifecycle.
type Server struct {
	mu    sync.RWMutex
	addr  string
	Hub   *hub.Hub
	Store *store.Store

	tasks         chan task
	taskQueueSize int
	outBufSize    int
	maxClients    int

	readyOnce sync.Once
	readyCh   chan struct{}
	lastErrMu sync.Mutex
	lastErr   error
	errCh     chan error
	listener  net.Listener
	wg        sync.WaitGroup
	logger    *slog.Logger

	nextConnID        uint64
	totalAccepted     atomic.Uint64
	totalAuthFail     atomic.Uint64
	totalConnected    atomic.Uint64
	totalDisconnected atomic.Uint64
	totalBroadcasts   atomic.Uint64
}

type ServerOption func(*Server)

func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		taskQueueSize: defaultTaskQueueSize,
		outBufSize:    defaultOutBufSize,
		readyCh:       make(chan struct{}),
		errCh:         make(chan error, 1),
		logger:        logging.L(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.Hub == nil {
		s.Hub = hub.New()
	}
	if s.addr == "" {
		s.addr = ":0"
	}
	s.tasks = make(chan task, s.taskQueueSize)
	return s
}

func WithListenAddr(a string) ServerOption   { return func(s *Server) { s.addr = a } }
func WithHub(hb *hub.Hub) ServerOption       { return func(s *Server) { s.Hub = hb } }
func WithStore(st *store.Store) ServerOption { return func(s *Server) { s.Store = st } }

func WithTaskQueueSize(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.taskQueueSize = n
		}
	}
}

func WithOutBufSize(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.outBufSize = n
		}
	}
}

func WithMaxClients(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxClients = n
		}
	}
}

func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func (s *Server) Addr() string           { s.mu.RLock(); defer s.mu.RUnlock(); return s.addr }
func (s *Server) setAddr(a string)       { s.mu.Lock(); s.addr = a; s.mu.Unlock() }
func (s *Server) SetListenAddr(a string) { s.setAddr(a) }
func (s *Server) Ready() <-chan struct{} { return s.readyCh }
func (s *Server) Errors() <-chan error   { return s.errCh }

func (s *Server) setError(err error) {
	if err == nil {
		return
	}
	s.lastErrMu.Lock()
	s.lastErr = err
	s.lastErrMu.Unlock()
	select {
	case s.errCh <- err:
	default:
	}
}
func (s *Server) LastError() error { s.lastErrMu.Lock(); defer s.lastErrMu.Unlock(); return s.lastErr }

// Serve binds the listener, starts the central dispatcher and accepts
// clients until ctx is cancelled. The dispatcher and the listener are the
// only goroutines whose failure takes the server down.
func (s *Server) Serve(ctx context.Context) error {
	if s.Store == nil {
		return fmt.Errorf("%w: no user store configured", ErrStoreInit)
	}
	s.mu.Lock()
	addr := s.addr
	if addr == "" {
		addr = ":0"
	}
	s.mu.Unlock()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		wrap := fmt.Errorf("%w: %v", ErrListen, err)
		metrics.IncError(mapErrToMetric(wrap))
		s.setError(wrap)
		return wrap
	}
	s.setAddr(ln.Addr().String())
	s.listener = ln
	s.readyOnce.Do(func() { close(s.readyCh) })
	s.logger.Info("tcp_listen", "addr", s.Addr())
	s.logger.Info("ready")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.dispatch(ctx)
	}()
	go func() { <-ctx.Done(); _ = ln.Close() }()

	for {
		if err := s.acceptOnce(ctx, ln); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// acceptOnce accepts a single connection and spawns its session goroutine.
// Returns nil on success; a wrapped error on fatal listener errors.
func (s *Server) acceptOnce(ctx context.Context, ln net.Listener) error {
	conn, err := ln.Accept()
	if err != nil {
		select {
		case <-ctx.Done():
			return context.Canceled
		default:
		}
		if _, ok := err.(net.Error); ok { // transient
			time.Sleep(200 * time.Millisecond)
			return nil
		}
		wrap := fmt.Errorf("%w: %v", ErrAccept, err)
		metrics.IncError(mapErrToMetric(wrap))
		s.setError(wrap)
		return wrap
	}
	s.totalAccepted.Add(1)
	connID := atomic.AddUint64(&s.nextConnID, 1)
	connLogger := s.logger.With("conn_id", connID, "remote", conn.RemoteAddr().String())
	connLogger.Info("connection_in")
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
		_ = tcp.SetKeepAlive(true)
		_ = tcp.SetKeepAlivePeriod(30 * time.Second)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.handleConn(ctx, conn, connLogger)
	}()
	return nil
}

// handleConn authenticates the connection and, on success, registers it with
// the hub and runs the reader/writer pair until the peer goes away.
func (s *Server) handleConn(ctx context.Context, conn net.Conn, logger *slog.Logger) {
	user, err := s.authenticate(ctx, conn)
	if err != nil {
		s.totalAuthFail.Add(1)
		wrap := fmt.Errorf("%w: %v", ErrAuth, err)
		metrics.IncError(mapErrToMetric(wrap))
		logger.Error("authentication_failed", "error", wrap)
		_ = conn.Close()
		return
	}
	if s.maxClients > 0 && s.Hub.Count() >= s.maxClients {
		metrics.IncHubReject()
		logger.Warn("client_reject_max", "max_clients", s.maxClients)
		_ = conn.Close()
		return
	}
	addr := conn.RemoteAddr().String()
	cl := hub.NewClient(addr, user, s.outBufSize)
	s.Hub.Add(cl)
	s.totalConnected.Add(1)
	logger.Info("client_authenticated", "user", string(user))

	s.startWriter(ctx.Done(), conn, cl, logger)
	// The reader runs on this goroutine; its exit removes the hub entry,
	// which closes the writer.
	s.readLoop(ctx, conn, cl, logger)
}

// Shutdown gracefully closes all resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
	for _, cl := range s.Hub.Snapshot() {
		s.Hub.Remove(cl)
	}
	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: shutdown timeout: %v", ErrContext, ctx.Err())
	case <-done:
		s.logger.Info("shutdown_summary",
			"accepted", s.totalAccepted.Load(),
			"auth_fail", s.totalAuthFail.Load(),
			"connected", s.totalConnected.Load(),
			"disconnected", s.totalDisconnected.Load(),
			"broadcasts", s.totalBroadcasts.Load())
		return nil
	}
}
