package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/dealerdesk/dealerdesk/cmd/dealerdesk/cli"
	"github.com/dealerdesk/dealerdesk/internal/app"
	"github.com/dealerdesk/dealerdesk/internal/audit"
	"github.com/dealerdesk/dealerdesk/internal/auth"
	"github.com/dealerdesk/dealerdesk/internal/customers"
	"github.com/dealerdesk/dealerdesk/internal/invoicing"
	"github.com/dealerdesk/dealerdesk/internal/leads"
	"github.com/dealerdesk/dealerdesk/internal/marketplace"
	"github.com/dealerdesk/dealerdesk/internal/observability"
	"github.com/dealerdesk/dealerdesk/internal/platform/db"
	"github.com/dealerdesk/dealerdesk/internal/rbac"
	"github.com/dealerdesk/dealerdesk/internal/roles"
	"github.com/dealerdesk/dealerdesk/internal/shared"
	"github.com/dealerdesk/dealerdesk/internal/users"
	"github.com/dealerdesk/dealerdesk/internal/vehicles"
	"github.com/dealerdesk/dealerdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	if len(os.Args) > 1 {
		cli.Run(os.Args[1:])
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "dealerdesk_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	// Authorization engine and guard shared by every protected route.
	rbacRepo := rbac.NewRepository(dbpool)
	permCache := rbac.NewMemoryCache(cfg.PermissionCacheTTL)
	engine := rbac.NewEngine(logger, rbacRepo, permCache, metrics)
	guard := rbac.Middleware{Engine: engine, Logger: logger}
	rbacService := rbac.NewService(rbacRepo, engine)

	authHandler := auth.NewHandler(logger, auth.NewService(auth.NewRepository(dbpool)), sessionManager, csrfManager)
	rolesHandler := roles.NewHandler(logger, rbacService, guard, auditLogger)
	usersService := users.NewService(users.NewRepository(dbpool), rbacService, engine)
	usersHandler := users.NewHandler(logger, usersService, guard, auditLogger)
	permissionsHandler := rbac.NewPermissionsHandler(logger, rbacService, guard)
	auditHandler := audit.NewHandler(logger, audit.NewService(dbpool), guard)

	vehiclesHandler := vehicles.NewHandler(logger, vehicles.NewService(vehicles.NewRepository(dbpool)), guard, auditLogger)
	customersHandler := customers.NewHandler(logger, customers.NewService(customers.NewRepository(dbpool)), guard, auditLogger)
	leadsHandler := leads.NewHandler(logger, leads.NewService(leads.NewRepository(dbpool)), guard, auditLogger)
	invoicesHandler := invoicing.NewHandler(logger, invoicing.NewService(invoicing.NewRepository(dbpool)), guard, auditLogger)

	channels := marketplace.NewSimChannels(cfg.MarketplaceChannels)
	marketplaceService := marketplace.NewService(logger, marketplace.NewRepository(dbpool), channels)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("asynq client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()
	marketplaceHandler := marketplace.NewHandler(logger, marketplaceService, jobClient, guard, auditLogger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		RolesHandler:       rolesHandler,
		UsersHandler:       usersHandler,
		PermissionsHandler: permissionsHandler,
		AuditHandler:       auditHandler,
		VehiclesHandler:    vehiclesHandler,
		CustomersHandler:   customersHandler,
		LeadsHandler:       leadsHandler,
		InvoicesHandler:    invoicesHandler,
		MarketplaceHandler: marketplaceHandler,
		JobsHandler:        jobsHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
