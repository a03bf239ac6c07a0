// Package api provides HTTP handlers for the poetloop backend.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"poetloop/chat"
	"poetloop/poet"
	"poetloop/store"
)

// Handler handles HTTP requests. It owns the clock and serializes mutating
// operations with a single mutex so interleaved requests observe consistent
// store state.
type Handler struct {
	store  store.Store
	orch   *chat.Orchestrator
	engine *poet.Engine

	mu  sync.Mutex
	now func() int64
}

// NewHandler creates a new handler.
func NewHandler(st store.Store, orch *chat.Orchestrator, engine *poet.Engine) *Handler {
	return &Handler{
		store:  st,
		orch:   orch,
		engine: engine,
		now:    func() int64 { return time.Now().UnixNano() },
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Chat API
	e.POST("/v1/chat", h.Chat)
	e.POST("/v1/chat/storage", h.ChatWithStorage)
	e.POST("/v1/prompt", h.Prompt)

	// Conversation API
	e.GET("/v1/conversations", h.ListConversations)
	e.GET("/v1/conversations/:id", h.GetConversation)
	e.GET("/v1/conversations/:id/messages", h.GetConversationMessages)
	e.PUT("/v1/conversations/:id/title", h.RenameConversation)
	e.DELETE("/v1/conversations/:id", h.DeleteConversation)

	// Poet API
	e.POST("/v1/poet/evolve", h.EvolvePoet)
	e.GET("/v1/poet/current", h.GetCurrentPoem)
	e.GET("/v1/poet/cycles", h.ListPoems)
	e.GET("/v1/poet/cycles/:n", h.GetPoemByCycle)
	e.GET("/v1/poet/cycles/:n/raw", h.GetRawResponse)
	e.GET("/v1/poet/state", h.GetPoetState)
	e.POST("/v1/poet/reset", h.ResetPoet)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
