package api

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"coworking/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type flagReadiness struct {
	loaded atomic.Bool
}

func (f *flagReadiness) Loaded() bool { return f.loaded.Load() }

func dialHealth(t *testing.T, srv *GRPCServer) healthpb.HealthClient {
	t.Helper()
	_, port, err := net.SplitHostPort(srv.Addr())
	require.NoError(t, err)

	conn, err := grpc.NewClient(net.JoinHostPort("127.0.0.1", port), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func TestGRPCHealthFollowsEngine(t *testing.T) {
	seats := &flagReadiness{}
	srv, err := NewGRPCServer(config.APIGRPCConfig{Enabled: true, Port: 0, Reflection: true}, seats, nil)
	require.NoError(t, err)
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	client := dialHealth(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: HealthService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	seats.loaded.Store(true)
	srv.updateHealth()

	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: HealthService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	_, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "coworking.unknown"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPCWatchReadiness(t *testing.T) {
	seats := &flagReadiness{}
	srv, err := NewGRPCServer(config.APIGRPCConfig{Port: 0}, seats, nil)
	require.NoError(t, err)
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.WatchReadiness(ctx, 10*time.Millisecond)

	client := dialHealth(t, srv)
	seats.loaded.Store(true)

	assert.Eventually(t, func() bool {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 20*time.Millisecond)
}

func TestLoggingUnaryInterceptor(t *testing.T) {
	interceptor := LoggingUnaryInterceptor(nil)

	handler := func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	}
	resp, err := interceptor(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "test"}, handler)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	failing := func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.Unavailable, "down")
	}
	_, err = interceptor(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "test"}, failing)
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestRequestIDFromMetadata(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(requestIDMetadataKey, " req-1 "))
	assert.Equal(t, "req-1", requestIDFromMetadata(ctx))

	generated := requestIDFromMetadata(context.Background())
	assert.Len(t, generated, 36)
}
