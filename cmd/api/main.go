package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/flicky/luxbag-api/internal/config"
	"github.com/flicky/luxbag-api/internal/events"
	"github.com/flicky/luxbag-api/internal/handler"
	"github.com/flicky/luxbag-api/internal/middleware"
	"github.com/flicky/luxbag-api/internal/notify"
	"github.com/flicky/luxbag-api/internal/repository"
	"github.com/flicky/luxbag-api/internal/service"
	"github.com/flicky/luxbag-api/internal/storage"
	"github.com/flicky/luxbag-api/internal/telemetry"
	"github.com/flicky/luxbag-api/internal/worker"
)

const smtpBreakerTimeout = 30 * time.Second

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var checks []handler.Check

	// Tracing
	if cfg.Tracing.Enabled {
		tp, err := telemetry.InitTracing(ctx, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName)
		if err != nil {
			log.Error("init tracing", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
		log.Info("tracing enabled", "endpoint", cfg.Tracing.Endpoint)
	}

	// Store
	repos, storeCheck, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()
	if storeCheck != nil {
		checks = append(checks, *storeCheck)
	}

	// Redis
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("connect to Redis", "error", err)
			os.Exit(1)
		}
		checks = append(checks, handler.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
		log.Info("connected to Redis")
	}

	// Events
	var (
		publisher   events.Publisher = events.NopPublisher{}
		amqpChannel *amqp.Channel
	)
	switch cfg.Events.Driver {
	case "rabbitmq":
		rmq, err := worker.DialRabbitMQ(cfg.Events.RabbitMQURL)
		if err != nil {
			log.Error("setup RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer rmq.Close()
		amqpChannel = rmq.Consume
		publisher = events.NewAMQPPublisher(rmq.Publish, events.OrderQueue)
		checks = append(checks, handler.Check{Name: "rabbitmq", Ping: func(context.Context) error {
			if rmq.Conn.IsClosed() {
				return amqp.ErrClosed
			}
			return nil
		}})
		log.Info("connected to RabbitMQ")
	case "kafka":
		publisher = events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic))
		log.Info("publishing order events to Kafka", "topic", cfg.Events.KafkaTopic)
	case "none", "":
	default:
		log.Error("unknown events driver", "driver", cfg.Events.Driver)
		os.Exit(1)
	}
	defer publisher.Close()

	// Notifications
	var notifier notify.Notifier = notify.NewLogNotifier(log)
	if cfg.SMTP.Host != "" {
		dialer := notify.NewSMTPDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
		notifier = notify.NewSMTPNotifier(dialer, cfg.SMTP.From, smtpBreakerTimeout)
	}

	images, err := storage.NewDiskStore(cfg.Uploads.Dir, cfg.Uploads.PublicURL)
	if err != nil {
		log.Error("init image storage", "error", err)
		os.Exit(1)
	}

	// Services
	authSvc := service.NewAuthService(repos.Users, cfg.JWT.Secret, cfg.JWT.Expiration)
	userSvc := service.NewUserService(repos.Users)
	productSvc := service.NewProductService(repos.Products, images, redisClient, cfg.Redis.CacheTTL, log)
	cartSvc := service.NewCartService(repos.Carts, repos.Products)
	orderSvc := service.NewOrderService(repos.Orders, repos.Carts, repos.Products, repos.Users, publisher, productSvc, log)
	adminSvc := service.NewAdminService(repos.Products, repos.Orders, repos.Users)

	// Router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.Recovery(),
		middleware.RequestLogger(log),
		middleware.Tracing(),
		middleware.Metrics(),
	)
	handler.RegisterRoutes(router, handler.Handlers{
		Auth:     handler.NewAuthHandler(authSvc),
		Products: handler.NewProductHandler(productSvc),
		Cart:     handler.NewCartHandler(cartSvc),
		Orders:   handler.NewOrderHandler(orderSvc),
		Admin:    handler.NewAdminHandler(adminSvc, userSvc),
		Health:   handler.NewHealthHandler(checks...),
	}, authSvc, handler.RouterOptions{
		ExposeErrors: !cfg.IsProduction(),
		UploadDir:    images.Dir(),
		UploadURL:    cfg.Uploads.PublicURL,
	})

	// Workers
	var orderWorker *worker.OrderWorker
	if cfg.Events.RunWorker && (amqpChannel != nil || cfg.Events.Driver == "kafka") {
		orderWorker = worker.NewOrderWorker(repos.Orders, repos.Users, redisClient, notifier, log)
		if amqpChannel != nil {
			if err := orderWorker.StartAMQP(ctx, amqpChannel); err != nil {
				log.Error("start order worker", "error", err)
				os.Exit(1)
			}
		} else {
			reader := worker.NewKafkaReader(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic, cfg.Events.KafkaGroupID)
			defer reader.Close()
			dlq := events.NewKafkaWriter(cfg.Events.KafkaBrokers, worker.DeadLetterTopic(cfg.Events.KafkaTopic))
			defer dlq.Close()
			orderWorker.StartKafka(ctx, reader, dlq)
		}
	}

	var reporter *worker.LowStockReporter
	if cfg.Reports.LowStockInterval > 0 {
		reporter = worker.NewLowStockReporter(adminSvc, notifier, cfg.SMTP.AdminEmail, log)
		if err := reporter.Start(ctx, cfg.Reports.LowStockInterval); err != nil {
			log.Error("start low stock reporter", "error", err)
			os.Exit(1)
		}
	}

	metricsSrv := telemetry.NewMetricsServer(cfg.Metrics.Port)
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      http.MaxBytesHandler(router, cfg.Server.MaxBodyBytes),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port, "env", cfg.AppEnv, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics server shutdown", "error", err)
	}

	if orderWorker != nil {
		orderWorker.Stop()
	}
	if reporter != nil {
		if err := reporter.Stop(); err != nil {
			log.Error("stop low stock reporter", "error", err)
		}
	}
	cancel()
	log.Info("server stopped")
}

// openStore connects the configured repository backend. The returned check is
// nil for the in-memory store.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (repository.Repositories, *handler.Check, func(), error) {
	switch cfg.Store.Driver {
	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.Timeout)
		defer cancel()

		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return repository.Repositories{}, nil, nil, fmt.Errorf("connect to MongoDB: %w", err)
		}
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		}
		if err := client.Ping(connectCtx, nil); err != nil {
			closeFn()
			return repository.Repositories{}, nil, nil, fmt.Errorf("ping MongoDB: %w", err)
		}
		db := client.Database(cfg.Mongo.Database)
		if err := repository.EnsureIndexes(connectCtx, db); err != nil {
			closeFn()
			return repository.Repositories{}, nil, nil, err
		}
		log.Info("connected to MongoDB", "database", cfg.Mongo.Database)
		check := &handler.Check{Name: "database", Ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		}}
		return repository.NewMongoRepositories(db), check, closeFn, nil

	case "postgres":
		poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
		if err != nil {
			return repository.Repositories{}, nil, nil, fmt.Errorf("parse db config: %w", err)
		}
		poolCfg.MaxConns = cfg.DB.MaxConns

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return repository.Repositories{}, nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return repository.Repositories{}, nil, nil, fmt.Errorf("ping database: %w", err)
		}
		if err := repository.Migrate(ctx, pool); err != nil {
			pool.Close()
			return repository.Repositories{}, nil, nil, err
		}
		log.Info("connected to PostgreSQL")
		check := &handler.Check{Name: "database", Ping: pool.Ping}
		return repository.NewPostgresRepositories(pool), check, pool.Close, nil

	case "memory":
		log.Warn("using in-memory store, data is lost on restart")
		return repository.NewMemoryRepositories(repository.NewMemoryStore()), nil, func() {}, nil

	default:
		return repository.Repositories{}, nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
