package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/victornm/etrivia/internal/api"
	"github.com/victornm/etrivia/internal/event"
	"github.com/victornm/etrivia/internal/telemetry"
	"github.com/victornm/etrivia/internal/trivia"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	GRPC struct {
		Port int32
	}

	Trivia struct {
		BaseURL string
		Amount  int
		Timeout time.Duration

		// Fallback is "easy" or "stepped".
		Fallback string
	}

	Cache struct {
		// Kind is "none", "memory" or "redis".
		Kind string
		TTL  time.Duration
	}

	Redis struct {
		Addrs  []string
		Pass   string
		Prefix string
	}

	Log struct {
		Level  string
		Format string
	}
}

// DefaultConfig is the config used before the file and env are applied.
func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.GRPC.Port = 9090
	c.Trivia.BaseURL = "https://opentdb.com"
	c.Trivia.Amount = trivia.DefaultAmount
	c.Trivia.Timeout = 10 * time.Second
	c.Trivia.Fallback = "easy"
	c.Cache.Kind = CacheNone
	c.Cache.TTL = 10 * time.Minute
	c.Redis.Prefix = "etrivia"
	c.Log.Level = "info"
	c.Log.Format = "text"
	return c
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis redis.UniversalClient
	}

	service struct {
		trivia *trivia.Service
	}

	api    *api.API
	health *health.Server

	http *http.Server
	grpc *grpc.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()
	telemetry.RecordQuizEvents(s.eb)

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initService(); err != nil {
		return nil, fmt.Errorf("server: init service: %w", err)
	}

	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if len(s.c.Redis.Addrs) == 0 {
		return nil
	}

	r, err := ConnectRedis(s.c)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	s.infra.redis = r
	return nil
}

func (s *Server) initService() (err error) {
	s.service.trivia, err = NewTrivia(s.c, s.infra.redis)
	return err
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	c := api.Config{
		Router:       e,
		EventBus:     s.eb,
		Trivia:       s.service.trivia,
		PubsubPrefix: s.c.Redis.Prefix,
	}
	if s.infra.redis != nil {
		c.Redis = s.infra.redis
	}
	s.api = api.New(c)

	s.grpc = grpc.NewServer(telemetry.GRPCServerInterceptors(slog.Default())...)
	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

// Start serves HTTP and gRPC until Shutdown is called or either listener fails.
func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		return fmt.Errorf("grpc server: listen: %w", err)
	}

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
		return err
	}
	return nil
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.health.Shutdown()
	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.api.Close()
	s.eb.Stop()

	if s.infra.redis != nil {
		if err := s.infra.redis.Close(); err != nil {
			slog.ErrorContext(ctx, "server: close redis failed", "error", err)
		}
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
