package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/trogers1052/portfolio-ledger/internal/api"
	"github.com/trogers1052/portfolio-ledger/internal/config"
	"github.com/trogers1052/portfolio-ledger/internal/database"
	"github.com/trogers1052/portfolio-ledger/internal/kafka"
	"github.com/trogers1052/portfolio-ledger/internal/ledger"
	"github.com/trogers1052/portfolio-ledger/internal/portfolio"
	"github.com/trogers1052/portfolio-ledger/internal/pricing"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("portfolio-ledger: %v", err)
	}
	log.Println("portfolio-ledger stopped")
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}

	var quotes *pricing.QuoteCache
	if cfg.Portfolio.UsesRedis() || cfg.Kafka.QuotesTopic != "" {
		rdb, err := pricing.NewRedisClient(ctx, pricing.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		quotes = pricing.NewQuoteCache(rdb, cfg.Portfolio.QuoteMaxAge)
	}

	prices, err := priceSource(cfg, db, quotes)
	if err != nil {
		return err
	}

	var publisher ledger.Publisher
	if cfg.Kafka.SnapshotsTopic != "" {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.SnapshotsTopic)
		defer producer.Close()
		publisher = producer
	}

	svc, err := ledger.NewService(db, prices, publisher, ledger.Config{
		PortfolioID: cfg.Portfolio.ID,
		InitialCash: cfg.Portfolio.InitialCash,
	})
	if err != nil {
		return err
	}

	if cfg.Portfolio.ReplayOnStart {
		n, err := svc.Replay(ctx)
		if err != nil {
			return err
		}
		snap := svc.Snapshot()
		log.Printf("Replayed %d fills: cash=%s equity=%s open=%d", n, snap.Cash, snap.Equity, snap.OpenPositions)
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Kafka.FillsTopic != "" {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.FillsTopic, cfg.Kafka.GroupID, svc)
		g.Go(func() error { return consumer.Start(ctx) })
	}
	if cfg.Kafka.QuotesTopic != "" {
		consumer := kafka.NewQuotesConsumer(cfg.Kafka.Brokers, cfg.Kafka.QuotesTopic, cfg.Kafka.GroupID, quotes)
		g.Go(func() error { return consumer.Start(ctx) })
	}
	if cfg.Portfolio.MarkInterval > 0 {
		g.Go(func() error {
			markLoop(ctx, svc, cfg.Portfolio.MarkInterval)
			return nil
		})
	}

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           api.SetupRoutes(api.NewHandler(svc, db)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		log.Printf("HTTP server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func priceSource(cfg *config.Config, db *database.DB, quotes *pricing.QuoteCache) (portfolio.PriceSource, error) {
	switch cfg.Portfolio.PriceSource {
	case config.PriceSourceStatic:
		return pricing.ParseStaticQuotes(cfg.Portfolio.StaticQuotes)
	case config.PriceSourceRedis:
		return quotes, nil
	case config.PriceSourceBars:
		return pricing.NewBarSource(db), nil
	case config.PriceSourceChain:
		return pricing.Chain{quotes, pricing.NewBarSource(db)}, nil
	}
	return nil, fmt.Errorf("unknown price source %q", cfg.Portfolio.PriceSource)
}

// markLoop re-marks open positions until ctx is cancelled.
func markLoop(ctx context.Context, svc *ledger.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if svc.Snapshot().OpenPositions == 0 {
				continue
			}
			if _, err := svc.MarkToMarket(ctx); err != nil {
				log.Printf("Mark to market failed: %v", err)
			}
		}
	}
}
