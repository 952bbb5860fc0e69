package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/support-console/backend/internal/api/handlers"
	"github.com/support-console/backend/internal/app"
	"github.com/support-console/backend/internal/metrics"
	"github.com/support-console/backend/internal/middleware/ratelimit"
	"github.com/support-console/backend/internal/middleware/security"
	"github.com/support-console/backend/internal/middleware/validation"
	"github.com/support-console/backend/pkg/logger"
)

type Server struct {
	*fiber.App
	limiter *ratelimit.RateLimiter
}

func NewServer(a *app.App) *Server {
	cfg := a.Config

	f := fiber.New(fiber.Config{
		AppName:      "support-console",
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	origins := splitOrigins(cfg.Server.AllowOrigins)
	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Logger:               logger.L(),
	})

	f.Use(recover.New())
	f.Use(fiberlogger.New())
	f.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(origins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + ratelimit.SessionHeader,
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	f.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: origins,
		Backends:       []string{cfg.Ticketing.BaseURL, cfg.Workflow.BaseURL},
		IsDevelopment:  cfg.Server.IsDevelopment,
	}))

	f.Get("/metrics", metrics.MetricsHandler())

	sessionHandler := handlers.NewSessionHandler(a.Sessions)
	queryHandler := handlers.NewQueryHandler()
	ticketsHandler := handlers.NewTicketsHandler()
	documentHandler := handlers.NewDocumentHandler(a.Knowledge, a.InvalidateAnswers)
	statusHandler := handlers.NewStatusHandler(a.Monitor, a.Ready)
	wsHandler := handlers.NewWebSocketHandler(a.Sessions, a.Hub, a.Knowledge, a.Monitor)

	v1 := f.Group("/api/v1", limiter.Middleware(), validation.Middleware(validation.Config{
		MaxDocumentSize: cfg.Server.BodyLimit,
		Logger:          logger.L(),
	}))

	v1.Get("/health", statusHandler.Health)
	v1.Get("/ready", statusHandler.Ready)
	v1.Get("/status", statusHandler.GetStatus)

	v1.Post("/sessions", sessionHandler.CreateSession)

	sessions := v1.Group("/sessions/:id", sessionHandler.RequireSession)
	sessions.Get("/", sessionHandler.GetSession)
	sessions.Delete("/", sessionHandler.DeleteSession)

	sessions.Get("/home", queryHandler.GetHome)
	sessions.Post("/home/ask", queryHandler.AskHome)
	sessions.Get("/chat", queryHandler.GetChat)
	sessions.Post("/chat", queryHandler.SendChat)

	sessions.Get("/tickets", ticketsHandler.GetTickets)
	sessions.Post("/tickets/refresh", ticketsHandler.Refresh)
	sessions.Put("/tickets/filters", ticketsHandler.SetFilters)
	sessions.Post("/tickets/search", ticketsHandler.Search)
	sessions.Get("/tickets/stats", ticketsHandler.GetStats)
	sessions.Get("/tickets/options", ticketsHandler.GetOptions)
	sessions.Post("/tickets/:ticketId/resolve", ticketsHandler.Resolve)

	v1.Get("/knowledge/documents", documentHandler.ListDocuments)
	v1.Post("/knowledge/documents", documentHandler.UploadDocument)
	v1.Post("/knowledge/build", documentHandler.BuildKnowledgeBase)
	v1.Get("/knowledge/stats", documentHandler.GetStats)

	ws := v1.Group("/ws")
	ws.Use(func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	ws.Get("/sessions/:id", sessionHandler.RequireSession, websocket.New(wsHandler.HandleConnection))

	return &Server{App: f, limiter: limiter}
}

func (s *Server) Shutdown() error {
	s.limiter.Stop()
	return s.App.Shutdown()
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
