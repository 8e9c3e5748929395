package telemetry

import (
	"context"
	"log/slog"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCServerInterceptors logs start and finish of every unary and streaming call.
// The gRPC port only serves health probes for the quiz server, so health calls are
// logged at debug to keep orchestrator polling out of the info log.
func GRPCServerInterceptors(l *slog.Logger) []grpc.ServerOption {
	opts := []logging.Option{
		logging.WithLogOnEvents(logging.StartCall, logging.FinishCall),
	}

	gl := grpcServerLogger(l)
	return []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(logging.UnaryServerInterceptor(gl, opts...)),
		grpc.ChainStreamInterceptor(logging.StreamServerInterceptor(gl, opts...)),
	}
}

func grpcServerLogger(l *slog.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		level := slog.Level(lvl)
		if isHealthCall(fields) && level < slog.LevelWarn {
			level = slog.LevelDebug
		}
		l.Log(ctx, level, msg, fields...)
	})
}

func isHealthCall(fields []any) bool {
	for i := 0; i+1 < len(fields); i += 2 {
		if fields[i] == logging.ServiceFieldKey {
			return fields[i+1] == healthpb.Health_ServiceDesc.ServiceName
		}
	}
	return false
}
