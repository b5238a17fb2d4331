package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"discogsography/internal/bus"
	"discogsography/internal/config"
	"discogsography/internal/dbpool"
	"discogsography/internal/sinks/tablesink"
	"discogsography/pkg/logger"
)

func main() {
	log := logger.New("main")

	cfg, err := config.New()
	if err != nil {
		os.Exit(1)
	}

	pool, err := dbpool.New(cfg)
	if err != nil {
		os.Exit(1)
	}
	defer func() {
		if err := pool.Close(); err != nil {
			log.Er("failed to close db pool", err)
		}
	}()

	amqp, err := bus.Connect(cfg)
	if err != nil {
		os.Exit(1)
	}
	defer func() {
		if err := amqp.Close(); err != nil {
			log.Er("failed to close amqp connection", err)
		}
	}()

	sink := tablesink.New(amqp, pool, cfg.MaxRedeliveries)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("table sink starting")
	if err := sink.Run(ctx); err != nil {
		log.Er("table sink exited with error", err)
		os.Exit(1)
	}
	log.Info("table sink exited cleanly")
}
