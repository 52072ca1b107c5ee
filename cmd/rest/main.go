package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"move-quote-be/internal/bootstrap"
	"move-quote-be/internal/config"
	"move-quote-be/internal/server"
	"move-quote-be/internal/tracer"
	"move-quote-be/pkg/database"

	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Configuration
	cfg := config.Load()

	// 2. Database
	dbOpts := database.DefaultOptions()
	dbOpts.Verbose = cfg.App.LogSQL
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection, dbOpts)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Dependencies
	container, err := bootstrap.NewContainer(ctx, gormDB, cfg)
	if err != nil {
		log.Fatalf("Failed to build container: %v", err)
	}
	defer container.Close()

	// Tracing (OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer(container.Logger)
	defer shutdownTracer(context.Background())

	// 4. Server and background workers
	srv := server.New(cfg, container)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		container.WebSocketHub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return container.ConsumerService.Consume(gctx)
	})
	if container.NotificationService != nil {
		g.Go(func() error {
			// Quotes are still accepted without the mailer.
			if err := container.NotificationService.Start(gctx); err != nil {
				container.Logger.Warn("BOOT", "Notification consumer stopped", map[string]interface{}{"error": err.Error()})
			}
			return nil
		})
	}
	g.Go(func() error {
		return srv.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Server stopped: %v", err)
	}
	log.Println("Server stopped")
}
