// Package server builds the fiber.App that serves the Read API, grounded
// on the teacher's internal/server.New (same middleware stack and order:
// cors, request logging, compression, helmet).
package server

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberLogs "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/helmet/v2"

	"discogsography/internal/app"
	"discogsography/internal/websockets"
	"discogsography/pkg/logger"
)

// AppServer wraps the configured fiber.App with the process logger.
type AppServer struct {
	FiberApp *fiber.App
	log      logger.Logger
}

func New(a *app.App) (*AppServer, error) {
	log := logger.New("server").Function("New")
	log.Info("initializing server")

	cfg := fiber.Config{
		ServerHeader:             fmt.Sprintf("discogsography-api/%s", a.Config.GeneralVersion),
		AppName:                  "discogsography-api",
		BodyLimit:                10 * 1024 * 1024,
		ReadBufferSize:           16384,
		WriteBufferSize:          16384,
		EnableSplittingOnParsers: true,
		EnableTrustedProxyCheck:  true,
		ReadTimeout:              30 * time.Second,
		WriteTimeout:             30 * time.Second,
		IdleTimeout:              120 * time.Second,
		DisableStartupMessage:    true,
	}

	if a.Config.Environment == "development" {
		log.Info("enabling development mode")
		cfg.DisableStartupMessage = false
		cfg.EnablePrintRoutes = true
	}

	fiberApp := fiber.New(cfg)

	fiberApp.Use(cors.New(cors.Config{
		AllowOrigins:     a.Config.CorsAllowOrigins,
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           300,
	}))
	fiberApp.Use(fiberLogs.New())
	fiberApp.Use(compress.New())
	fiberApp.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	a.API.Router(fiberApp)
	websockets.New(a.EventBus, a.Config.JWTSecret).Register(fiberApp)

	return &AppServer{FiberApp: fiberApp, log: log}, nil
}

// Listen starts serving on port, blocking until the server shuts down.
func (s *AppServer) Listen(port int) error {
	log := s.log.Function("Listen")
	if port == 0 {
		return log.Error("invalid port", "port", port)
	}
	log.Info("starting server", "port", port)
	return s.FiberApp.Listen(fmt.Sprintf(":%d", port))
}
