package handlers

import (
	"strings"

	"meter_reading/internal/logger"
	"meter_reading/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services       *service.Service
	log            *logger.Logger
	deviceKey      string
	allowedOrigins map[string]struct{}
	upgrader       websocket.Upgrader
}

// Option customizes a Handler.
type Option func(*Handler)

// WithDeviceKey requires devices to send key in the X-Device-Key header.
func WithDeviceKey(key string) Option {
	return func(h *Handler) { h.deviceKey = key }
}

// WithAllowedOrigins restricts the status stream to the given browser origins.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Handler) {
		for _, o := range origins {
			if o = strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/")); o != "" {
				if h.allowedOrigins == nil {
					h.allowedOrigins = make(map[string]struct{})
				}
				h.allowedOrigins[o] = struct{}{}
			}
		}
	}
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts ...Option) *Handler {
	h := &Handler{services: services, log: log}
	for _, opt := range opts {
		opt(h)
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Device-facing endpoints
	router.POST("/devices/heartbeat", h.deviceKeyMiddleware, h.heartbeat)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// Installation status stream (HTTP upgrade on the same port)
	router.GET("/ws/installations/:id", h.wsInstallationStatus)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		api.POST("/devices", h.registerDevice)
		h.registerInstallationRoutes(api)
		api.POST("/readings/extract", h.extractReading)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerInstallationRoutes(api *gin.RouterGroup) {
	inst := api.Group("/installations")
	{
		inst.POST("/start", h.startInstallation)
		inst.POST("/:id/validate", h.runValidation)
		inst.POST("/:id/cancel", h.cancelValidation)
		inst.GET("/:id/status", h.installationStatus)
		// Body example: {"installer_confirmed":true,"expected_reading":1234.5}
		inst.POST("/:id/complete", h.completeInstallation)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	api.GET("/logs", h.getLogs)
}
