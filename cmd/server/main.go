package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/partystacker/internal/chain"
	"github.com/iliyamo/partystacker/internal/config"
	"github.com/iliyamo/partystacker/internal/database"
	"github.com/iliyamo/partystacker/internal/handler"
	"github.com/iliyamo/partystacker/internal/ledger"
	"github.com/iliyamo/partystacker/internal/middleware"
	"github.com/iliyamo/partystacker/internal/payment"
	"github.com/iliyamo/partystacker/internal/purchase"
	"github.com/iliyamo/partystacker/internal/queue"
	"github.com/iliyamo/partystacker/internal/repository"
	"github.com/iliyamo/partystacker/internal/repository/memory"
	"github.com/iliyamo/partystacker/internal/router"
	"github.com/iliyamo/partystacker/internal/service"
	"github.com/iliyamo/partystacker/internal/ticket"
	"github.com/iliyamo/partystacker/internal/x402"
)

type eventStore interface {
	handler.EventStore
	ledger.Counter
}

type ticketStore interface {
	handler.TicketReader
	ticket.Store
	ticket.CheckinStore
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		events  eventStore
		tickets ticketStore
		db      *sql.DB
	)
	switch cfg.StoreDriver {
	case config.StoreMemory:
		events, tickets = memory.NewEventRepo(), memory.NewTicketRepo()
	default:
		var err error
		db, err = database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("database: %v", err)
		}
		events, tickets = repository.NewEventRepo(db), repository.NewTicketRepo(db)
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		logger.Warn("redis unavailable, rate limiting and event cache disabled", "addr", cfg.Redis.Addr)
	} else {
		defer rdb.Close()
	}
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)

	var (
		notifier handler.Notifier
		minter   ticket.RewardMinter
	)
	if cfg.AMQPURL != "" {
		publisher := service.NewPublisher(cfg.AMQPURL)
		notifier, minter = publisher, publisher
		go func() {
			if err := queue.StartTicketConsumer(ctx, cfg.AMQPURL, "logs"); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("ticket consumer stopped", "error", err)
			}
		}()
	}

	resolver := repository.NewEventResolver(events, nil)
	verifier := payment.NewVerifier(
		chain.NewClient(cfg.X402.ChainAPIURL, nil),
		payment.WithTimeout(cfg.X402.VerifyTimeout),
		payment.WithStrict(cfg.X402.Strict),
		payment.WithLogger(logger),
	)
	signer := ticket.NewSigner(cfg.QRSecret, cfg.QRMaxAge)
	orchestrator := purchase.New(
		resolver,
		ledger.New(events),
		verifier,
		ticket.NewIssuer(tickets, signer),
		purchase.Config{
			Network:           cfg.X402.Network,
			Asset:             cfg.X402.Asset,
			MaxTimeoutSeconds: cfg.X402.MaxTimeoutSeconds,
		},
		logger,
	)

	var health func(context.Context) error
	if db != nil {
		health = db.PingContext
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowHeaders:  []string{echo.HeaderContentType, echo.HeaderAuthorization, x402.HeaderPaymentSignature},
		ExposeHeaders: []string{x402.HeaderPaymentRequired, x402.HeaderPaymentResponse},
	}))

	router.RegisterRoutes(e, handler.Health(health))
	router.RegisterAPI(e, router.Handlers{
		Purchase:  handler.NewPurchaseHandler(orchestrator, notifier, cache, cfg.X402.Asset, cfg.X402.FacilitatorURL),
		Events:    handler.NewEventHandler(events, resolver, cache),
		Tickets:   handler.NewTicketHandler(tickets, ticket.NewCheckin(tickets, events, minter, logger), signer),
		Analytics: handler.NewAnalyticsHandler(events, tickets),
	}, router.Middlewares{
		PurchaseLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig("PURCHASE", 10, 6*time.Second), rdb),
		CheckinLimit:  middleware.NewTokenBucket(config.LoadRateLimitConfig("CHECKIN", 120, 500*time.Millisecond), rdb),
		EventCache:    cache.Middleware(),
	}, cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreDriver, "network", cfg.X402.Network)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
