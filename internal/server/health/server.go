// Package health serves the standard gRPC health protocol, reporting
// SERVING only while the database answers pings.
package health

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service key for the users API. The empty name
// reports overall status and is kept in sync with it.
const ServiceName = "shop.users.v1.Users"

// DefaultInterval is how often the database is pinged.
const DefaultInterval = 10 * time.Second

// Pinger checks a dependency. Implemented by *postgres.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wraps a gRPC server exposing health (and reflection in dev).
type Server struct {
	gs  *grpc.Server
	hs  *health.Server
	log *zap.Logger
}

// New builds the server. Status starts as NOT_SERVING until the first ping.
func New(log *zap.Logger, dev bool, opts ...grpc.ServerOption) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	opts = append(opts,
		grpc.ChainUnaryInterceptor(RecoverUnary(log), LoggingUnary(log)),
		grpc.ChainStreamInterceptor(RecoverStream(log)),
	)
	gs := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	if dev {
		reflection.Register(gs)
	}
	s := &Server{gs: gs, hs: hs, log: log}
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Serve blocks serving on lis.
func (s *Server) Serve(lis net.Listener) error { return s.gs.Serve(lis) }

// Watch pings p immediately and then every interval until ctx is done,
// updating the reported status on each transition.
func (s *Server) Watch(ctx context.Context, p Pinger, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	last := healthpb.HealthCheckResponse_UNKNOWN
	for {
		st := s.probe(ctx, p, interval)
		if st != last {
			s.log.Info("health status", zap.String("status", st.String()))
			s.set(st)
			last = st
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (s *Server) probe(ctx context.Context, p Pinger, timeout time.Duration) healthpb.HealthCheckResponse_ServingStatus {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.Ping(pctx); err != nil {
		s.log.Warn("database ping failed", zap.Error(err))
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}

func (s *Server) set(st healthpb.HealthCheckResponse_ServingStatus) {
	s.hs.SetServingStatus("", st)
	s.hs.SetServingStatus(ServiceName, st)
}

// Shutdown reports NOT_SERVING to watchers, then stops gracefully, forcing
// the stop after timeout.
func (s *Server) Shutdown(timeout time.Duration) {
	s.hs.Shutdown()
	done := make(chan struct{})
	go func() {
		s.gs.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.gs.Stop()
	}
}
