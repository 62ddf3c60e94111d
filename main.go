package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/booking/booking_api"
	"ms-booking/internal/checkin"
	"ms-booking/internal/checkin/checkin_api"
	"ms-booking/internal/config"
	"ms-booking/internal/coupon"
	"ms-booking/internal/coupon/coupon_api"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/kafka"
	"ms-booking/internal/ledger"
	"ms-booking/internal/logger"
	"ms-booking/internal/lottery"
	"ms-booking/internal/lottery/lottery_api"
	"ms-booking/internal/metrics"
	"ms-booking/internal/notify"
	"ms-booking/internal/profile"
	"ms-booking/internal/reconcile"
	"ms-booking/internal/reconcile/bankapi"
	"ms-booking/internal/reconcile/reconcile_api"
	"ms-booking/internal/sse"
	"ms-booking/internal/ticketqr"

	"github.com/go-co-op/gocron/v2"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func connectDatabase(cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	if cfg.DSN == "" {
		log.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

func newVerifier(ctx context.Context, cfg config.AuthConfig, log *logger.Logger) auth.Verifier {
	switch {
	case cfg.OIDCIssuer != "":
		v, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer)
		if err != nil {
			log.Fatal("AUTH", fmt.Sprintf("OIDC discovery for %s failed: %v", cfg.OIDCIssuer, err))
		}
		log.Info("AUTH", fmt.Sprintf("Verifying bearer tokens against %s", cfg.OIDCIssuer))
		return v
	case cfg.JWTSecret != "":
		log.Info("AUTH", "Verifying HS256 bearer tokens")
		return auth.NewHMACVerifier(cfg.JWTSecret)
	default:
		log.Warn("AUTH", "No token verifier configured, every caller is anonymous")
		return nil
	}
}

func newProfileLookup(cfg config.ProfileConfig, rdb *redis.Client, log *logger.Logger) *profile.Chain {
	chain := &profile.Chain{Fallback: profile.NewMemoryLookup(nil)}
	if cfg.ServiceURL == "" {
		return chain
	}

	var cache auth.TokenStore = &auth.MemoryTokenCache{}
	if rdb != nil {
		cache = auth.NewRedisTokenCache(rdb, "m2m_token:"+cfg.ClientID)
	}
	httpClient := &http.Client{Timeout: 10 * time.Second}
	chain.Primary = &profile.HTTPLookup{
		BaseURL: cfg.ServiceURL,
		Tokens: &auth.M2MClient{
			TokenURL:     cfg.TokenURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			HTTPClient:   httpClient,
			Cache:        cache,
			Logger:       log,
		},
		HTTPClient: httpClient,
		Logger:     log,
	}
	log.Info("PROFILE", fmt.Sprintf("Resolving display names via %s", cfg.ServiceURL))
	return chain
}

func main() {
	log := logger.NewLogger("ms-booking")
	defer log.Close()

	log.Info("APP", "Starting booking service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}
	cfg := config.Load()
	ctx := context.Background()

	bunDB := connectDatabase(cfg.Database, log)
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrations.Options{Dir: cfg.Database.MigrationsDir, SeedData: cfg.Database.SeedData}, log)
		if err := runner.Run(); err != nil {
			log.Fatal("MIGRATE", fmt.Sprintf("Migrations failed: %v", err))
		}
	}
	store := &ledger.DB{Bun: bunDB}

	var rdb *redis.Client
	var throttle booking.Throttle
	if cfg.Redis.Addr != "" {
		client, err := auth.ConnectRedis(cfg.Redis.Addr, log)
		if err != nil {
			log.Warn("REDIS", fmt.Sprintf("Redis unavailable, using in-process throttle: %v", err))
		} else {
			rdb = client
			defer rdb.Close()
		}
	}
	if rdb != nil {
		throttle = booking.NewRedisThrottle(rdb, cfg.Booking.ThrottleMax, cfg.Booking.ThrottleWindow)
	} else {
		throttle = booking.NewLocalThrottle(cfg.Booking.ThrottleMax, cfg.Booking.ThrottleWindow)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	var codec *ticketqr.Codec
	if cfg.Notify.QRSecret != "" {
		c, err := ticketqr.NewCodec(cfg.Notify.QRSecret)
		if err != nil {
			log.Fatal("CONFIG", fmt.Sprintf("Ticket QR codec: %v", err))
		}
		codec = c
	} else {
		log.Warn("CONFIG", "TICKET_QR_SECRET not set, ticket QR codes and gate scanning are disabled")
	}

	emitter := sse.NewPaymentEmitter()
	dispatchers := notify.Multi{emitter}
	if cfg.Kafka.Enabled {
		if codec == nil {
			log.Fatal("CONFIG", "KAFKA_ENABLED requires TICKET_QR_SECRET, ticket.issued events carry a sealed QR payload")
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer producer.Close()
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{cfg.Kafka.TicketTopic}, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		dispatchers = append(dispatchers, &notify.TicketPublisher{
			Publisher: producer,
			Topic:     cfg.Kafka.TicketTopic,
			Codec:     codec,
			QRSize:    cfg.Notify.QRSize,
			Logger:    log,
		})
	}
	if cfg.Notify.SheetWebhookURL != "" {
		dispatchers = append(dispatchers, notify.NewSheetExporter(cfg.Notify.SheetWebhookURL))
	}

	bookingService := booking.NewService(store, throttle, log)
	bookingService.Metrics = m
	bookingService.LoginCooldown = cfg.Booking.LoginCooldown
	trips := &booking.TripAdmin{
		Store:    store,
		Profiles: newProfileLookup(cfg.Profile, rdb, log),
		Logger:   log,
	}

	engine := reconcile.NewEngine(store, dispatchers, log)
	engine.Metrics = m
	var source reconcile.Source
	var scheduler gocron.Scheduler
	if cfg.Bank.APIKey != "" {
		source = bankapi.NewClient(cfg.Bank.APIURL, cfg.Bank.APIKey, cfg.Bank.PageSize)
		if cfg.Bank.SyncInterval > 0 {
			s, err := engine.StartPeriodicSync(source, cfg.Bank.SyncInterval)
			if err != nil {
				log.Fatal("RECONCILE", err.Error())
			}
			scheduler = s
		}
	}
	if cfg.Bank.WebhookSecret == "" {
		log.Warn("CONFIG", "BANK_WEBHOOK_SECRET not set, every bank webhook will be rejected")
	}

	prizes, err := lottery.LoadPrizes(cfg.Lottery.PrizesFile)
	if err != nil {
		log.Fatal("LOTTERY", err.Error())
	}
	allocator, err := lottery.NewAllocator(store, prizes, cfg.Lottery.AllowedUsers, log)
	if err != nil {
		log.Fatal("LOTTERY", err.Error())
	}
	allocator.Metrics = m
	allocator.PoolLimit = cfg.Lottery.PoolLimit

	gate := checkin.NewGate(store, codec, log)
	gate.Metrics = m
	gate.QRSize = cfg.Notify.QRSize

	h := handlers{
		Booking:   booking_api.NewHandler(bookingService, trips, log),
		Reconcile: reconcile_api.NewHandler(engine, source, cfg.Bank.WebhookSecret, log),
		Lottery:   lottery_api.NewHandler(allocator, log),
		Checkin:   checkin_api.NewHandler(gate, log),
		Coupon:    coupon_api.NewHandler(coupon.NewService(store, log), log),
		Payments:  sse.NewPaymentStreamHandler(bookingService, emitter, log),
	}

	log.Info("HTTP", "Setting up router and middleware")
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      newRouter(h, newVerifier(ctx, cfg.Auth, log), cfg.Auth.AdminUserIDs, m, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Booking service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	if scheduler != nil {
		if err := scheduler.Shutdown(); err != nil {
			log.Error("RECONCILE", fmt.Sprintf("Scheduler shutdown failed: %v", err))
		}
	}

	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "Booking service shutdown complete")
	}
}
