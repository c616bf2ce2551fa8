// Package tcp implements the service listener and the per-connection
// dispatcher for the line protocol. One goroutine serves one connection;
// a single process-lifetime goroutine sweeps idle sessions out of the
// registry regardless of what individual connections are doing.
package tcp

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/ratelimit"
	"github.com/dmitrijs2005/authcore/internal/server/config"
	"github.com/dmitrijs2005/authcore/internal/server/services"
	"github.com/dmitrijs2005/authcore/internal/server/sessions"
)

type Server struct {
	address       string
	logger        logging.Logger
	auth          *services.AuthService
	registry      *sessions.Registry
	limiter       *ratelimit.Limiter
	readTimeout   time.Duration
	sweepInterval time.Duration
	idleTimeout   time.Duration
}

func NewServer(cfg *config.Config, l logging.Logger, auth *services.AuthService, registry *sessions.Registry) *Server {
	return &Server{
		address:       cfg.EndpointAddr,
		logger:        l.With("module", "tcp_server"),
		auth:          auth,
		registry:      registry,
		limiter:       ratelimit.New(cfg.LoginRateLimit, cfg.LoginRateBurst),
		readTimeout:   cfg.ReadTimeout,
		sweepInterval: cfg.SweepInterval,
		idleTimeout:   cfg.IdleTimeout,
	}
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping TCP server...")
		listen.Close()
	}()

	go s.sweepLoop(ctx)

	s.logger.Info(ctx, "Starting TCP server", "address", s.address)

	for {
		conn, err := listen.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		d := newDispatcher(s, conn)
		go d.run(ctx)
	}
}

// sweepLoop evicts idle sessions on a fixed period. It outlives every
// dispatcher and stops only with the server context.
func (s *Server) sweepLoop(ctx context.Context) {

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.registry.SweepExpired(s.idleTimeout); n > 0 {
				s.logger.Info(ctx, "swept idle sessions", "count", n)
			}
		}
	}
}
