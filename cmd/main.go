/**
 * @description
 * This is the main entry point for the ledger-service. It is responsible for
 * initializing all components of the service, including configuration, database
 * connection, the customer-service client, message brokers, repositories, the
 * core application service, and the HTTP server. It wires everything together
 * and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9: Redis client for rate limiting.
 * - go.opentelemetry.io/otel: Metrics export.
 * - internal/api, internal/app, internal/config, internal/store, internal/telemetry.
 * - pkg/customerclient, pkg/rabbitmq.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/corebank/ledger-service/internal/api"
	"github.com/corebank/ledger-service/internal/app"
	"github.com/corebank/ledger-service/internal/config"
	"github.com/corebank/ledger-service/internal/store"
	"github.com/corebank/ledger-service/internal/telemetry"
	"github.com/corebank/ledger-service/pkg/customerclient"
	"github.com/corebank/ledger-service/pkg/rabbitmq"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.InternalAPIKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"internal api key must be configured\" env=INTERNAL_API_KEY")
	}

	log.Printf("level=info component=bootstrap msg=\"starting ledger-service\" port=%s", cfg.ServerPort)

	// Export metrics over OTLP when an endpoint is configured. Without one the
	// counters stay registered against the global no-op provider.
	if endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); endpoint != "" {
		shutdownMetrics, err := setupMetricsExport(context.Background())
		if err != nil {
			log.Printf("level=warn component=bootstrap msg=\"metrics export setup failed; counters disabled\" err=%v", err)
		} else {
			defer shutdownMetrics()
			log.Printf("level=info component=bootstrap msg=\"metrics export enabled\" endpoint=%s", endpoint)
		}
	}
	metrics, err := telemetry.NewMetrics()
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"metrics init failed\" err=%v", err)
	}

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts behind pgbouncer.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer for domain events. A broker outage at
	// boot downgrades to the fallback producer: the ledger keeps serving and
	// every skipped publish is counted.
	var producer rabbitmq.Publisher
	if eventProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL); err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rabbitmq.EventProducerFallback{}
	} else {
		defer eventProducer.Close()
		producer = eventProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the client for the customer-service. A missing configuration
	// does not prevent boot; customer validation will fail closed instead.
	var customerLookup app.CustomerLookup
	if strings.TrimSpace(cfg.CustomerServiceURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"customer-service client not configured; sync customer lookups disabled\" env=CUSTOMER_SERVICE_URL")
	} else {
		customerLookup = customerclient.NewClient(
			cfg.CustomerServiceURL,
			cfg.CustomerServiceInternalAPIKey,
			time.Duration(cfg.CustomerLookupTimeoutSeconds)*time.Second,
		)
	}

	// Optional Redis connection for movement rate limiting.
	var redisClient *redis.Client
	if cfg.MovementRateLimitPerMinute > 0 {
		if cfg.RedisURL == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; movement rate limiting disabled\" env=REDIS_URL")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; movement rate limiting disabled\" err=%v", parseErr)
			} else {
				redisClient = redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelPing()
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"redis ping failed; movement rate limiting disabled\" err=%v", pingErr)
					redisClient.Close()
					redisClient = nil
				} else {
					defer redisClient.Close()
					log.Println("level=info component=bootstrap msg=\"redis connected\"")
				}
			}
		}
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Initialize the core application service with its dependencies.
	cache := app.NewCustomerCache(repository, customerLookup, time.Duration(cfg.CustomerLookupTimeoutSeconds)*time.Second)
	publisher := app.NewEventPublisher(producer, cfg.LedgerEventExchange, metrics)
	ledgerService := app.NewService(repository, cache, publisher, metrics)
	if redisClient != nil {
		ledgerService.SetMovementRateLimiter(
			app.NewRedisMovementRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
			cfg.MovementRateLimitPerMinute,
		)
	}

	// Wire the customer lifecycle consumer: all three event types are handled
	// by the same handler, which routes on the event type.
	customerConsumer := app.NewCustomerEventConsumer(cache, ledgerService, metrics)

	rabbitConsumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"rabbitmq consumer init failed\" err=%v", err)
	}
	defer rabbitConsumer.Close()

	customerBindings := map[string]func([]byte) bool{
		"customer.created": customerConsumer.HandleMessage,
		"customer.updated": customerConsumer.HandleMessage,
		"customer.deleted": customerConsumer.HandleMessage,
	}
	if err := rabbitConsumer.ConsumeWithBindings(cfg.CustomerEventExchange, cfg.CustomerEventQueue, customerBindings); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"customer consumer start failed\" err=%v", err)
	}

	// Initialize the API handlers and router.
	handlers := api.NewLedgerHandlers(ledgerService)
	router := api.LedgerRoutes(handlers, cfg.JWKSURL, cfg.InternalAPIKey)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}

// setupMetricsExport installs a periodic OTLP/gRPC metric exporter as the
// global meter provider. The endpoint and credentials come from the standard
// OTEL_EXPORTER_OTLP_* environment variables.
func setupMetricsExport(ctx context.Context) (func(), error) {
	exporter, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("ledger-service"),
	))
	if err != nil {
		return nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(30*time.Second))),
	)
	otel.SetMeterProvider(provider)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Printf("level=warn component=telemetry msg=\"meter provider shutdown failed\" err=%v", err)
		}
	}, nil
}
