package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"discogsography/internal/app"
	"discogsography/internal/server"
	"discogsography/pkg/logger"
)

func main() {
	log := logger.New("main")

	application, err := app.New()
	if err != nil {
		os.Exit(1)
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Er("failed to close app", err)
		}
	}()

	appServer, err := server.New(application)
	if err != nil {
		os.Exit(1)
	}

	done := make(chan bool, 1)

	go func() {
		if err := appServer.Listen(application.Config.ServerPort); err != nil {
			log.Er("server exited with error", err)
			os.Exit(1)
		}
	}()

	go gracefulShutdown(appServer, done, log)

	<-done
	log.Info("graceful shutdown complete")
}

func gracefulShutdown(appServer *server.AppServer, done chan bool, log logger.Logger) {
	log = log.Function("gracefulShutdown")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down gracefully, press Ctrl+C again to force")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := appServer.FiberApp.ShutdownWithContext(shutdownCtx); err != nil {
		log.Er("server forced to shutdown", err)
	}

	log.Info("server exiting")
	done <- true
}
