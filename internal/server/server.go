package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/rs/zerolog"

	"github.com/v78582514-blip/notes-app-clean/internal/share"
	"github.com/v78582514-blip/notes-app-clean/internal/store"
	"github.com/v78582514-blip/notes-app-clean/internal/ws"
)

type FiberServer struct {
	*fiber.App

	store     *store.Store
	hub       *ws.Hub
	sink      share.Sink
	jwtSecret []byte
	log       zerolog.Logger
}

func New(st *store.Store, hub *ws.Hub, sink share.Sink, jwtSecret []byte, log zerolog.Logger) *FiberServer {
	server := &FiberServer{
		App: fiber.New(fiber.Config{
			ServerHeader: "notes",
			AppName:      "notes",
		}),
		store:     st,
		hub:       hub,
		sink:      sink,
		jwtSecret: jwtSecret,
		log:       log,
	}
	server.App.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		MaxAge:       3600,
	}))
	server.App.Use(logger.New())
	return server
}
