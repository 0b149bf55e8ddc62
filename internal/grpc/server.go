package server

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	middleware "github.com/tejusbharadwaj/smardexporter/internal/grpc/middlewares"
)

// ServerConfig holds configuration options for the gRPC server
type ServerConfig struct {
	RateLimit      float64 // Requests per second
	RateLimitBurst int     // Maximum burst size for rate limiting
}

// DefaultServerConfig returns a ServerConfig with sensible defaults
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		RateLimit:      10.0,
		RateLimitBurst: 20,
	}
}

// Validate checks the rate limit settings.
func (c ServerConfig) Validate() error {
	if c.RateLimit <= 0 {
		return errors.New("rate limit must be positive")
	}
	if c.RateLimitBurst <= 0 {
		return errors.New("rate limit burst must be positive")
	}
	return nil
}

// RequestMetrics are the collectors the metrics interceptor records into.
type RequestMetrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

// SetupServer initializes the gRPC server with all middleware and registers
// the health service on it. metrics may be nil.
func SetupServer(health *HealthChecker, config ServerConfig, logger logrus.FieldLogger, metrics *RequestMetrics) (*grpc.Server, error) {
	if health == nil {
		return nil, errors.New("health checker is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	interceptors := []grpc.UnaryServerInterceptor{
		middleware.ContextMiddleware, // Add request ID first
		middleware.NewRateLimitingInterceptor(rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimitBurst)),
		middleware.NewLoggingInterceptor(logger),
	}
	if metrics != nil {
		interceptors = append(interceptors, middleware.NewMetricsInterceptor(metrics.Requests, metrics.Latency))
	}

	server := grpc.NewServer(
		grpc.UnaryInterceptor(chainUnaryInterceptors(interceptors...)),
	)
	grpc_health_v1.RegisterHealthServer(server, health)

	return server, nil
}

// chainUnaryInterceptors creates a single interceptor from multiple interceptors
func chainUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		chain := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			interceptor := interceptors[i]
			chainedInterceptor := chain
			chain = func(currentCtx context.Context, currentReq interface{}) (interface{}, error) {
				return interceptor(currentCtx, currentReq, info, chainedInterceptor)
			}
		}
		return chain(ctx, req)
	}
}
