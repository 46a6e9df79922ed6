// Package server wires the acceptor, bounded queue, worker pool, per-URI
// registry, handlers, audit log, and metrics into the running file server.
package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cubbit/httpfs/internal/audit"
	"github.com/cubbit/httpfs/internal/handlers"
	"github.com/cubbit/httpfs/internal/logger"
	"github.com/cubbit/httpfs/internal/metrics"
	"github.com/cubbit/httpfs/internal/queue"
	"github.com/cubbit/httpfs/internal/ratelimiter"
	"github.com/cubbit/httpfs/internal/registry"
	"github.com/cubbit/httpfs/internal/request"
	"github.com/cubbit/httpfs/internal/rwlock"
	"github.com/cubbit/httpfs/pkg/config"
)

// Server owns the listener, the bounded connection queue, the worker pool,
// and the per-URI lock registry for a single running instance.
//
// Serve must only be called once per Server; a second call panics.
type Server struct {
	cfg     *config.Config
	webroot string

	listener net.Listener
	q        *queue.Queue[net.Conn]
	reg      *registry.Registry
	audit    *audit.Writer
	metrics  *metrics.Metrics
	limiter  *ratelimiter.RateLimiter

	serveOnce sync.Once
	served    bool
}

// New constructs a Server from validated configuration. Construction builds
// the registry (and therefore every RWLock) up front; a misconfigured
// policy/N here is a programmer error caught by config.Validate before this
// point, so registry.New failing is treated as a panic, not a returned error.
func New(cfg *config.Config) (*Server, error) {
	policy, err := rwlock.ParsePolicy(cfg.Locking.Policy)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	reg, err := registry.New(cfg.Server.RegistryCapacity, policy, cfg.Locking.N)
	if err != nil {
		panic(fmt.Sprintf("server: registry construction from validated config failed: %v", err))
	}

	q, err := queue.New[net.Conn](cfg.Server.Threads)
	if err != nil {
		panic(fmt.Sprintf("server: queue construction from validated config failed: %v", err))
	}

	auditWriter, err := audit.Open(cfg.Audit.Output)
	if err != nil {
		return nil, fmt.Errorf("server: opening audit destination: %w", err)
	}

	var limiter *ratelimiter.RateLimiter
	if cfg.AcceptLimit.RatePerSecond > 0 {
		limiter = ratelimiter.New(uint(cfg.AcceptLimit.RatePerSecond), uint(cfg.AcceptLimit.Burst))
	}

	return &Server{
		cfg:     cfg,
		webroot: cfg.Server.Webroot,
		q:       q,
		reg:     reg,
		audit:   auditWriter,
		metrics: metrics.New(),
		limiter: limiter,
	}, nil
}

// Metrics returns the server's metrics instance, for wiring an optional
// /metrics HTTP endpoint.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// Serve binds the listening socket, starts the worker pool, and runs the
// accept loop until ctx is cancelled. It then blocks until every worker has
// joined or the configured shutdown timeout elapses, whichever comes first.
func (s *Server) Serve(ctx context.Context) error {
	var err error
	first := false
	s.serveOnce.Do(func() {
		first = true
		s.served = true
		err = s.serve(ctx)
	})
	if !first {
		panic("server: Serve called more than once")
	}
	return err
}

func (s *Server) serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("server: listen on port %d: %w", s.cfg.Server.Port, err)
	}
	s.listener = listener

	logger.Info("httpfs listening on port %d with %d workers", s.cfg.Server.Port, s.cfg.Server.Threads)

	go func() {
		<-ctx.Done()
		_ = s.listener.Close()
	}()

	var workers sync.WaitGroup
	for i := 0; i < s.cfg.Server.Threads; i++ {
		workers.Add(1)
		go func(id int) {
			defer workers.Done()
			s.workerLoop(ctx, id)
		}(i)
	}

	s.acceptLoop(ctx)

	logger.Debug("acceptor stopped; waiting for workers to drain")

	done := make(chan struct{})
	go func() {
		workers.Wait()
		close(done)
	}()

	timeout := time.Duration(s.cfg.Server.ShutdownTimeoutSeconds) * time.Second
	select {
	case <-done:
	case <-time.After(timeout):
		logger.Warn("shutdown timeout (%s) elapsed before all workers joined", timeout)
	}

	_ = s.audit.Close()
	logger.Info("httpfs stopped gracefully")
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				logger.Debug("accept error: %v", err)
				continue
			}
		}

		if s.limiter != nil && !s.limiter.Allow() {
			s.metrics.ConnectionsRejected.Inc()
			_ = conn.Close()
			continue
		}
		s.metrics.ConnectionsAccepted.Inc()

		if err := s.q.PushContext(ctx, conn); err != nil {
			_ = conn.Close()
			return
		}
		s.metrics.QueueDepth.Set(float64(s.q.Len()))
	}
}

func (s *Server) workerLoop(ctx context.Context, id int) {
	for {
		conn, err := s.q.PopContext(ctx)
		if err != nil {
			return
		}
		s.metrics.QueueDepth.Set(float64(s.q.Len()))
		s.metrics.WorkersBusy.Inc()

		s.handleConnection(conn)

		s.metrics.WorkersBusy.Dec()
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	start := time.Now()
	reader := bufio.NewReader(conn)

	req, perr := request.Parse(reader, conn)
	if perr != nil {
		logger.Debug("parse error: %v", perr)
		_ = handlers.WriteCanned(conn, perr.Status)
		return
	}

	entry, err := s.reg.Acquire("/" + req.URI)
	if err != nil {
		panic(fmt.Sprintf("server: registry exhausted: %v", err))
	}
	defer s.reg.Release(entry)

	lock := entry.Lock()
	var result handlers.Result

	switch req.Method {
	case "GET":
		lock.ReaderLock()
		result = handlers.Get(s.webroot, req.URI, conn)
		s.writeAuditThenUnlock(req, result.Status, lock.ReaderUnlock)
	case "PUT":
		lock.WriterLock()
		result = handlers.Put(s.webroot, req, nil)
		s.writeAuditThenUnlock(req, result.Status, lock.WriterUnlock)
	}

	if !result.Sent {
		_ = handlers.WriteCanned(conn, result.Status)
	}

	s.metrics.ObserveRequest(req.Method, result.Status, time.Since(start))
}

// writeAuditThenUnlock writes the audit line while still holding the
// per-URI lock, then releases it. This ordering is the entire reason the
// per-URI lock exists (§5): it guarantees audit-line order for two
// conflicting requests matches the order in which they observed the
// filesystem.
func (s *Server) writeAuditThenUnlock(req *request.Request, status int, unlock func()) {
	if err := s.audit.Record(req.Method, req.URI, status, req.RequestID); err != nil {
		logger.Error("audit write failed: %v", err)
	}
	unlock()
}
