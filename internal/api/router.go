package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/directchat/chat-server/internal/api/handler"
	"github.com/directchat/chat-server/internal/api/middleware"
	"github.com/directchat/chat-server/internal/api/ws"
	"github.com/directchat/chat-server/internal/core/ports"
	"github.com/directchat/chat-server/internal/core/service"
	"github.com/directchat/chat-server/internal/core/session"
)

// Deps is everything the HTTP surface is built from.
type Deps struct {
	Users    ports.UserRepository
	Messages ports.MessageRepository
	// Dedup is optional; without it clientId on message:send is ignored.
	Dedup service.SendDedup
	// Ready lists the dependencies checked by /health/ready.
	Ready map[string]handler.Pinger

	JWTSecret string
	Auth      *service.AuthService
	WS        ws.Options
	Logger    zerolog.Logger
	// RequestLog enables the stock Echo request logger.
	RequestLog bool
}

// Server is the assembled HTTP surface plus the session registry it serves.
// Sessions must be drained on shutdown before the stores are closed.
type Server struct {
	Echo     *echo.Echo
	Registry *session.Registry
	Sessions *ws.Handler
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	if d.RequestLog {
		e.Use(echomiddleware.Logger())
	}

	// --- Core services ---
	registry := session.NewRegistry()
	log := d.Logger

	presence := service.NewPresenceBroadcaster(registry, log.With().Str("component", "presence").Logger())
	lifecycle := service.NewLifecycleManager(registry, d.Users, presence, log.With().Str("component", "lifecycle").Logger())
	router := service.NewMessageRouter(registry, d.Messages, d.Dedup, log.With().Str("component", "router").Logger())
	typing := service.NewTypingRelay(registry, log.With().Str("component", "typing").Logger())
	receipts := service.NewReceiptPropagator(registry, d.Messages, log.With().Str("component", "receipts").Logger())
	conversations := service.NewConversationService(d.Users, d.Messages, log.With().Str("component", "conversations").Logger())

	authService := d.Auth
	if authService == nil {
		authService = service.NewAuthService(d.Users, d.JWTSecret, 0)
	}

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(conversations)
	conversationHandler := handler.NewConversationHandler(conversations)
	wsHandler := ws.NewHandler(ws.Services{
		Verifier:  authService,
		Lifecycle: lifecycle,
		Router:    router,
		Typing:    typing,
		Receipts:  receipts,
	}, e.Validator, d.WS, log.With().Str("component", "ws").Logger())

	authMiddleware := middleware.Auth(d.JWTSecret)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Authenticated REST ---
	e.GET("/users", userHandler.List, authMiddleware)
	e.GET("/conversations/:id/messages", conversationHandler.Messages, authMiddleware)

	// --- Realtime ---
	e.GET("/ws", wsHandler.Serve)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.Ready)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)

	// --- Ops ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusTemporaryRedirect, "/swagger/index.html")
	})

	return &Server{Echo: e, Registry: registry, Sessions: wsHandler}
}
