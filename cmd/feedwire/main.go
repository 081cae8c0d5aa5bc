// Command feedwire runs the feed ingestion service: it polls every registered
// feed source on a fixed interval, persists normalized articles, and announces
// new ones to configured sinks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/clubpulse/feedwire/internal/cache"
	"github.com/clubpulse/feedwire/internal/config"
	"github.com/clubpulse/feedwire/internal/ingest"
	"github.com/clubpulse/feedwire/internal/logger"
	"github.com/clubpulse/feedwire/internal/scheduler"
	"github.com/clubpulse/feedwire/internal/store"
	"github.com/clubpulse/feedwire/pkg/httpclient"
	"github.com/clubpulse/feedwire/pkg/publishers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "feedwire:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := store.Open(cfg.DataPath, log)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := httpclient.NewRestyClient(cfg.FetchTimeout)

	opts := []ingest.Option{
		ingest.WithCache(cache.New(), cfg.CacheTTL),
	}
	if cfg.EnrichThumbnails {
		opts = append(opts, ingest.WithEnricher(ingest.NewEnricher(client, db, log)))
	}

	if cfg.PublishersFile != "" {
		pubCfgs, err := publishers.LoadConfigs(cfg.PublishersFile)
		if err != nil {
			return err
		}
		pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), publishers.EnabledConfigs(pubCfgs), log)
		if err != nil {
			return err
		}
		if len(pubs) > 0 {
			opts = append(opts, ingest.WithEventSink(publishers.NewFanout(pubs, log)))
			log.InfoObj("publishers configured", "publishers_ready", map[string]any{
				"count": len(pubs),
			})
		}
	}

	fetcher := ingest.NewFetcher(db, db, client, log, opts...)

	sched := scheduler.New(fetcher, cfg.FetchInterval, log)
	sched.Start(ctx)

	<-ctx.Done()
	sched.Shutdown()
	return nil
}
