package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/cartstate/internal/cart"
	healthcheck "github.com/vladislavdragonenkov/cartstate/internal/health"
	"github.com/vladislavdragonenkov/cartstate/internal/metrics"
	grpcsvc "github.com/vladislavdragonenkov/cartstate/internal/service/grpc"
	"github.com/vladislavdragonenkov/cartstate/internal/version"
)

// Run поднимает gRPC-сервер корзин и HTTP-сервер метрик и блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStorage(deps, logger)

	catalogSource, catalogChecker := initCatalog(cfg, logger)

	// Без Kafka корзины работают, события просто не публикуются.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	defer closeKafka(kafkaProducer, logger)

	options := []cart.Option{
		cart.WithLogger(log.WithField("component", "cart-store")),
		cart.WithRecorder(metrics.NewCartMetrics()),
		cart.WithMaxWriteAttempts(cfg.WriteMaxAttempts),
		cart.WithRetryBaseDelay(cfg.WriteRetryDelay),
		cart.WithWriteTimeout(cfg.WriteTimeout),
	}
	if kafkaProducer != nil {
		options = append(options, cart.WithPublisher(kafkaProducer))
	}
	registry := cart.NewRegistry(deps.kv, catalogSource, options...)
	defer closeRegistry(registry, cfg.ShutdownTimeout, logger)

	if cfg.ScopeIdleTTL > 0 {
		evictor := cart.NewIdleEvictor(registry,
			cart.WithEvictorLogger(logger.WithField("worker", "scope-evictor")),
			cart.WithEvictInterval(cfg.ScopeEvictInterval),
			cart.WithIdleTTL(cfg.ScopeIdleTTL),
		)
		go evictor.Run(ctx)
	}

	cartService := grpcsvc.NewCartService(registry, logger.WithField("layer", "grpc"))
	grpcMetrics := registerGRPCMetrics(logger)
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpcMetrics.UnaryServerInterceptor(),
		grpcsvc.ScopeInterceptor(registry),
	))
	grpcsvc.RegisterCartServiceServer(grpcServer, cartService)
	grpcMetrics.InitializeMetrics(grpcServer)

	// Reflection для grpcurl
	reflection.Register(grpcServer)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcsvc.CartServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	if catalogChecker != nil {
		healthHandler.RegisterChecker("catalog", catalogChecker)
	}
	healthHandler.SetScopeCounter(func() int { return len(registry.Sessions()) })

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		shutdownHTTP(metricsSrv, logger)
		return fmt.Errorf("listen grpc: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("gRPC сервер слушает %s", lis.Addr())
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем gRPC сервер")
		healthServer.Shutdown()
		stopGRPC(grpcServer, cfg.ShutdownTimeout, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

func registerGRPCMetrics(logger *log.Entry) *promgrpc.ServerMetrics {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				return existing
			}
		}
		logger.WithError(err).Warn("failed to register grpc metrics")
	}
	return grpcMetrics
}

func stopGRPC(server *grpc.Server, timeout time.Duration, logger *log.Entry) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	stoppedCh := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stoppedCh)
	}()

	select {
	case <-stoppedCh:
	case <-time.After(timeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		server.Stop()
	}
}

// closeRegistry дописывает очереди записи всех открытых корзин.
func closeRegistry(registry *cart.Registry, timeout time.Duration, logger *log.Entry) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := registry.Close(ctx); err != nil {
		logger.WithError(err).Warn("cart scopes closed with errors")
		return
	}
	logger.Info("cart scopes closed")
}
