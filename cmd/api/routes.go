package main

import (
	"nexa-backend/internal/ratelimit"
	"nexa-backend/internal/webhook"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h webhook.Handlers, limiter *ratelimit.Limiter) {
	r.GET("/", h.HandleHome)
	r.HEAD("/", h.HandleHome)
	r.GET("/health", h.HandleHealth)

	// Voice-platform webhook. Secret validation happens in the handler so a
	// rejected request still gets a JSON body the platform can log.
	r.POST("/vapi-webhook", limiter.PerMinute("webhook", 30), h.HandleWebhook)

	// Backfill from the platform's call API. Much more expensive than a
	// single webhook, hence the tighter limit.
	r.GET("/sync-vapi-calllogs", limiter.PerMinute("sync", 10), h.HandleSync)

	// Profile context for the assistant at call start. The bare path exists so
	// a missing phone gets a JSON 400 instead of a router 404.
	r.GET("/user-context", limiter.PerMinute("context", 60), h.HandleUserContext)
	r.GET("/user-context/:phone", limiter.PerMinute("context", 60), h.HandleUserContext)
}
