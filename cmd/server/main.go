package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"invox/internal/config"
	"invox/internal/email/noop"
	"invox/internal/email/ses"
	"invox/internal/extract"
	"invox/internal/handler"
	"invox/internal/oracle"
	"invox/internal/oracle/groq"
	"invox/internal/oracle/openai"
	"invox/internal/pipeline"
	"invox/internal/port"
	"invox/internal/query"
	"invox/internal/repository/postgres"
	"invox/internal/router"
	"invox/internal/service"
	s3storage "invox/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func registerProviders() {
	oracle.RegisterProvider("groq", func(cfg *config.OracleProviderConfig) (port.Oracle, error) {
		return groq.NewClient(cfg), nil
	})
	oracle.RegisterProvider("openai", func(cfg *config.OracleProviderConfig) (port.Oracle, error) {
		return openai.NewClient(cfg), nil
	})
}

func buildOracle(cfg *config.OracleConfig) (port.Oracle, error) {
	primary, err := oracle.NewOracle(&cfg.Primary)
	if err != nil {
		return nil, fmt.Errorf("initializing primary oracle: %w", err)
	}

	oracles := []port.Oracle{primary}
	names := []string{cfg.Primary.Provider}
	if secondaryCfg := cfg.SecondaryConfig(); secondaryCfg != nil {
		secondary, err := oracle.NewOracle(secondaryCfg)
		if err != nil {
			return nil, fmt.Errorf("initializing secondary oracle: %w", err)
		}
		oracles = append(oracles, secondary)
		names = append(names, secondaryCfg.Provider)
	}

	if len(oracles) == 1 {
		return primary, nil
	}
	return oracle.NewFallback(oracles, names), nil
}

func buildNotifier(cfg *config.EmailConfig) (port.Notifier, error) {
	if cfg.Provider == "ses" {
		return ses.NewSESNotifier(cfg.Region, cfg.FromAddress, cfg.FromName, cfg.FrontendURL)
	}
	return noop.NewNoopNotifier(), nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Repositories
	invoiceRepo := postgres.NewInvoiceRepo(db)
	userRepo := postgres.NewUserRepo(db)

	// Storage
	s3Client, err := s3storage.NewDocumentStore(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	// Oracle chain
	registerProviders()
	llm, err := buildOracle(&cfg.Oracle)
	if err != nil {
		return err
	}

	// Notifications
	notifier, err := buildNotifier(&cfg.Email)
	if err != nil {
		return fmt.Errorf("failed to initialize notifier: %w", err)
	}

	// Pipeline
	extractor := extract.NewExtractor()
	runner := pipeline.NewRunner(llm, extractor, cfg.Pipeline.StageMaxAttempts, cfg.Pipeline.StageBackoff)
	engine := query.NewEngine(llm)

	// Services
	authSvc := service.NewAuthService(userRepo, cfg.JWT)
	invoiceSvc := service.NewInvoiceService(
		invoiceRepo, userRepo, s3Client, runner, notifier,
		cfg.S3.Bucket, cfg.S3.MaxFileSizeMB, cfg.S3.PresignExpiry, cfg.Pipeline.RunTimeout)
	chatSvc := service.NewChatService(invoiceRepo, engine)
	exportSvc := service.NewExportService(invoiceRepo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bootstrap admin on an empty user table
	if err := authSvc.EnsureAdmin(ctx, cfg.Admin); err != nil {
		return err
	}

	// Stale extraction reaper
	reaper := service.NewStaleReaper(invoiceRepo, service.ReaperConfig{
		Interval:   cfg.Pipeline.ReaperInterval,
		StaleAfter: cfg.Pipeline.StaleAfter,
	})
	go reaper.Start(ctx)

	// Handlers and router
	authH := handler.NewAuthHandler(authSvc)
	invoiceH := handler.NewInvoiceHandler(invoiceSvc, exportSvc)
	chatH := handler.NewChatHandler(chatSvc)
	healthH := handler.NewHealthHandler(db)

	r := router.Setup(authSvc, authH, invoiceH, chatH, healthH, cfg.CORS.AllowedOrigins)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Printf("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
