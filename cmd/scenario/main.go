package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/scenariosim/internal/scenario/application"
	"github.com/wyfcoding/scenariosim/internal/scenario/domain"
	"github.com/wyfcoding/scenariosim/internal/scenario/infrastructure/persistence/mysql"
	scenarioredis "github.com/wyfcoding/scenariosim/internal/scenario/infrastructure/persistence/redis"
	"github.com/wyfcoding/scenariosim/internal/scenario/infrastructure/publisher"
	grpc_server "github.com/wyfcoding/scenariosim/internal/scenario/interfaces/grpc"
	http_server "github.com/wyfcoding/scenariosim/internal/scenario/interfaces/http"
	"github.com/wyfcoding/scenariosim/pkg/cache"
	"github.com/wyfcoding/scenariosim/pkg/config"
	"github.com/wyfcoding/scenariosim/pkg/db"
	"github.com/wyfcoding/scenariosim/pkg/logger"
	"github.com/wyfcoding/scenariosim/pkg/metrics"
	"github.com/wyfcoding/scenariosim/pkg/middleware"
	"github.com/wyfcoding/scenariosim/pkg/mq"
	"github.com/wyfcoding/scenariosim/pkg/ratelimit"
	"github.com/wyfcoding/scenariosim/pkg/tracing"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/scenario/config.toml", "path to config file")
	flag.Parse()

	if err := run(configPath); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// 1. Config
	cfg, err := config.LoadWithDefaults(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Logger & Tracing
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, cfg.ServiceName, cfg.Version, tracing.Config{
		Enabled:           cfg.Tracing.Enabled,
		CollectorEndpoint: cfg.Tracing.CollectorEndpoint,
		SamplingRate:      cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	// 3. Database
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
		Tracing:            cfg.Tracing.Enabled,
	})
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer database.Close()

	repo := mysql.NewScenarioRunRepository(database.DB)
	if err := repo.AutoMigrate(); err != nil {
		return fmt.Errorf("migrate db: %w", err)
	}

	// 4. Redis (optional)
	var (
		readRepo domain.ScenarioRunReadRepository
		limiter  ratelimit.RateLimiter = ratelimit.NewLocalRateLimiter()
		redisDB  *cache.RedisCache
	)
	if cfg.Redis.Enabled() {
		redisDB, err = cache.New(cache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxPoolSize:  cfg.Redis.MaxPoolSize,
			ConnTimeout:  cfg.Redis.ConnTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
		defer redisDB.Close()

		readRepo = scenarioredis.NewScenarioRunRedisRepository(redisDB, time.Duration(cfg.Cache.TTL)*time.Second)
		limiter = ratelimit.NewRedisRateLimiter(redisDB.Client())
	} else {
		logger.Warn(ctx, "redis not configured, read cache disabled and rate limiting is per-process")
	}

	// 5. Kafka (optional)
	var eventPublisher domain.EventPublisher = publisher.NewLogEventPublisher()
	if cfg.Kafka.Enabled() {
		producer, err := mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			WriteTimeout: cfg.Kafka.WriteTimeout,
			Async:        cfg.Kafka.Async,
		})
		if err != nil {
			return fmt.Errorf("init kafka: %w", err)
		}
		defer producer.Close()
		eventPublisher = publisher.NewKafkaEventPublisher(producer, "")
	}

	// 6. Domain & Application
	m := metrics.New(cfg.ServiceName)

	engine, err := domain.NewEngine(domain.SimulationConfig{
		Paths:   cfg.Simulation.Paths,
		Steps:   cfg.Simulation.Steps,
		Workers: cfg.Simulation.Workers,
	}, domain.WithLogger(logger.Get()))
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}

	var jitter *rand.Rand
	if cfg.Simulation.AssumptionJitter {
		jitter = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	opts := application.DefaultOptions()
	opts.ExposureKey = cfg.Simulation.ExposureKey
	opts.DefaultExposure = cfg.Simulation.DefaultExposure

	appService := application.NewScenarioApplicationService(
		engine,
		domain.NewHeuristicAssumptionProvider(jitter),
		repo,
		readRepo,
		eventPublisher,
		m,
		opts,
	)

	// 7. Interfaces
	limit := ratelimit.PerSecond(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	// gRPC
	unary := []grpc.UnaryServerInterceptor{
		middleware.GRPCRecoveryInterceptor(),
		middleware.GRPCLoggingInterceptor(),
		middleware.GRPCMetricsInterceptor(m),
	}
	if cfg.RateLimit.Enabled {
		unary = append(unary, middleware.GRPCRateLimitInterceptor(limiter, limit))
	}
	grpcSrv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(unary...),
		grpc.MaxConcurrentStreams(uint32(cfg.GRPC.MaxConcurrentStreams)),
	)
	grpc_server.RegisterScenarioServiceServer(grpcSrv, grpc_server.NewHandler(appService))
	reflection.Register(grpcSrv)

	// HTTP
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(
		otelgin.Middleware(cfg.ServiceName),
		middleware.GinLoggingMiddleware(),
		middleware.GinRecoveryMiddleware(),
		middleware.GinMetricsMiddleware(m),
		middleware.GinCORSMiddleware(),
	)

	sys := r.Group("/sys")
	{
		sys.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })
		sys.GET("/ready", func(c *gin.Context) {
			if err := database.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "NOT_READY", "error": err.Error()})
				return
			}
			if redisDB != nil {
				if err := redisDB.Ping(c.Request.Context()); err != nil {
					c.JSON(http.StatusServiceUnavailable, gin.H{"status": "NOT_READY", "error": err.Error()})
					return
				}
			}
			c.JSON(http.StatusOK, gin.H{"status": "READY"})
		})
	}
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}
	pp := r.Group("/debug/pprof")
	{
		pp.GET("/", gin.WrapF(pprof.Index))
		pp.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		pp.GET("/profile", gin.WrapF(pprof.Profile))
		pp.GET("/symbol", gin.WrapF(pprof.Symbol))
		pp.GET("/trace", gin.WrapF(pprof.Trace))
	}

	api := r.Group("")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimitMiddleware(limiter, limit))
	}
	http_server.NewHandler(api, appService)

	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	// 8. Start
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr())
		if err != nil {
			return err
		}
		logger.Info(ctx, "Starting gRPC server", "addr", cfg.GRPC.Addr())
		return grpcSrv.Serve(lis)
	})

	g.Go(func() error {
		logger.Info(ctx, "HTTP server starting", "addr", cfg.HTTP.Addr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// 9. Graceful Shutdown
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)
		select {
		case <-quit:
			logger.Info(ctx, "shutting down servers...")
		case <-gctx.Done():
			logger.Info(ctx, "context cancelled, shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, "HTTP server forced to shutdown", "error", err)
		}
		grpcSrv.GracefulStop()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error(ctx, "tracing shutdown failed", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info(ctx, "Server exiting")
	return nil
}
