package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"discogsography/internal/bus"
	"discogsography/internal/config"
	"discogsography/internal/graphdriver"
	"discogsography/internal/sinks/graphsink"
	"discogsography/pkg/logger"
)

func main() {
	log := logger.New("main")

	cfg, err := config.New()
	if err != nil {
		os.Exit(1)
	}

	graph, err := graphdriver.New(cfg)
	if err != nil {
		os.Exit(1)
	}
	defer func() {
		if err := graph.Close(context.Background()); err != nil {
			log.Er("failed to close graph driver", err)
		}
	}()

	if err := graphdriver.Bootstrap(context.Background(), graph); err != nil {
		os.Exit(1)
	}

	amqp, err := bus.Connect(cfg)
	if err != nil {
		os.Exit(1)
	}
	defer func() {
		if err := amqp.Close(); err != nil {
			log.Er("failed to close amqp connection", err)
		}
	}()

	sink := graphsink.New(amqp, graph, cfg.MaxRedeliveries)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("graph sink starting")
	if err := sink.Run(ctx); err != nil {
		log.Er("graph sink exited with error", err)
		os.Exit(1)
	}
	log.Info("graph sink exited cleanly")
}
