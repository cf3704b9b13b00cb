package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/shoe-erp/internal/adapter/handler"
	"github.com/rl1809/shoe-erp/internal/adapter/handler/orderpb"
	"github.com/rl1809/shoe-erp/internal/adapter/messaging"
	"github.com/rl1809/shoe-erp/internal/adapter/storage"
	"github.com/rl1809/shoe-erp/internal/config"
	"github.com/rl1809/shoe-erp/internal/core/domain"
	"github.com/rl1809/shoe-erp/internal/core/service"
	"github.com/rl1809/shoe-erp/internal/observability"
	"github.com/rl1809/shoe-erp/internal/port"
)

const publishTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OtelEndpoint)
	if err != nil {
		logger.Fatal("failed to set up tracing", zap.Error(err))
	}

	// Initialize MySQL
	db, err := storage.OpenMySQL(ctx, cfg.MySQL)
	if err != nil {
		logger.Fatal("failed to connect mysql", zap.Error(err))
	}
	logger.Info("connected to mysql")

	mysqlAdapter := storage.NewMySQLAdapter(db)
	if cfg.MySQL.AutoMigrate {
		if err := mysqlAdapter.Migrate(ctx); err != nil {
			logger.Fatal("failed to migrate schema", zap.Error(err))
		}
		logger.Info("schema migrated")
	}

	// Initialize Redis
	var (
		rdb   *redis.Client
		cache port.CacheRepository
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		cache = storage.NewRedisAdapter(rdb, cfg.Redis.LockTTL, cfg.Redis.IdempotencyTTL, cfg.Redis.DetailTTL)
		logger.Info("connected to redis")
	} else {
		logger.Warn("REDIS_ADDR not set, idempotency keys and detail cache disabled")
	}

	// Initialize RabbitMQ
	var (
		mq        *messaging.RabbitMQ
		publisher port.EventPublisher = logPublisher{logger: logger}
	)
	if cfg.AMQPURL != "" {
		mq, err = messaging.NewRabbitMQ(cfg.AMQPURL)
		if err != nil {
			logger.Fatal("failed to connect rabbitmq", zap.Error(err))
		}
		orderPublisher, err := messaging.NewOrderPublisher(mq)
		if err != nil {
			logger.Fatal("failed to declare order queue", zap.Error(err))
		}
		publisher = orderPublisher
		logger.Info("connected to rabbitmq")
	}

	// Initialize services
	engine := service.NewOrderEngine(mysqlAdapter, mysqlAdapter, logger)
	orderService := service.NewOrderService(engine, mysqlAdapter, cache, logger, cfg.EventQueueSize)
	inventoryService := service.NewInventoryService(mysqlAdapter, logger)

	// Start event workers
	var wg sync.WaitGroup
	for i := 0; i < cfg.EventWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			workerLoop(id, orderService.GetEventQueue(), publisher, logger)
		}(i)
	}
	logger.Info("started event workers", zap.Int("count", cfg.EventWorkers))

	// Initialize gRPC server
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(handler.UnaryLogger(logger)))
	orderpb.RegisterOrderServiceServer(grpcServer, handler.NewGRPCHandler(orderService, logger))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		otelgin.Middleware(config.ServiceName),
		handler.RequestID(),
		handler.RequestLogger(logger),
	)
	handler.NewHTTPHandler(orderService, inventoryService, logger).Register(router)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	// Stop HTTP server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	// Stop gRPC server
	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	// Close event queue and wait for workers
	orderService.Close()
	wg.Wait()
	logger.Info("workers stopped")

	// Close connections
	if mq != nil {
		mq.Close()
	}
	if rdb != nil {
		rdb.Close()
	}
	db.Close()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown", zap.Error(err))
	}
	logger.Info("connections closed")
}

// workerLoop publishes committed orders. A failed publish is logged; the
// order itself is already durable.
func workerLoop(id int, queue <-chan domain.Order, publisher port.EventPublisher, logger *zap.Logger) {
	for order := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)

		if err := publisher.PublishOrderCreated(ctx, order); err != nil {
			logger.Error("failed to publish order.created",
				zap.Int("worker", id),
				zap.Int64("order_id", order.ID),
				zap.Error(err),
			)
		} else {
			logger.Debug("published order.created", zap.Int("worker", id), zap.Int64("order_id", order.ID))
		}

		cancel()
	}
}

// logPublisher stands in for RabbitMQ when AMQP_URL is unset.
type logPublisher struct {
	logger *zap.Logger
}

func (p logPublisher) PublishOrderCreated(_ context.Context, order domain.Order) error {
	p.logger.Info("order.created",
		zap.Int64("order_id", order.ID),
		zap.String("total", order.Total.String()),
		zap.Int("lines", len(order.Lines)),
	)
	return nil
}
