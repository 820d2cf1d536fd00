package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/w3bsuki/strike-cart-go/internal/bus"
	"github.com/w3bsuki/strike-cart-go/internal/cart"
	"github.com/w3bsuki/strike-cart-go/internal/config"
	"github.com/w3bsuki/strike-cart-go/internal/events"
	"github.com/w3bsuki/strike-cart-go/internal/gateway"
	"github.com/w3bsuki/strike-cart-go/internal/httpapi"
	"github.com/w3bsuki/strike-cart-go/internal/share"
)

func main() {
	logger := log.New(os.Stdout, "[cart-sync] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		// Unconfigured backend: fail fast, nothing to retry
		logger.Fatalf("config: %v", err)
	}

	gw, err := gateway.New(cfg.BackendURL, &http.Client{Timeout: cfg.UpstreamTimeout})
	if err != nil {
		logger.Fatalf("gateway: %v", err)
	}

	updates := bus.New[cart.Update]()
	coordinator := cart.NewCoordinator(gw, updates, logger, cfg.BulkChunkSize)

	tokens := share.NewTTLCache[share.Snapshot](nil)
	shares := share.NewService(gw, tokens, cfg.ShareBaseURL, nil, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go tokens.Sweep(ctx, cfg.ShareSweepInterval, logger)

	// Optional broker bridge; the in-process bus alone is enough for a
	// single instance.
	if cfg.AMQPURL != "" {
		conn, err := events.Dial(cfg.AMQPURL)
		if err != nil {
			logger.Fatalf("amqp: %v", err)
		}
		defer conn.Close()

		publisher, err := events.NewPublisher(conn)
		if err != nil {
			logger.Fatalf("amqp publisher: %v", err)
		}
		defer publisher.Close()

		unsubscribe := events.Bridge(updates, publisher, logger)
		defer unsubscribe()
	}

	handler := httpapi.NewHandler(coordinator, shares, gw, cfg.ShareTTL)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowOrigins)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Printf("listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Printf("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown error: %v", err)
	}
	logger.Printf("shutdown complete")
}
