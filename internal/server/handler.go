package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sashabaranov/go-openai"

	"github.com/comigor/mindfulmate/internal/history"
	"github.com/comigor/mindfulmate/internal/llm"
	"github.com/comigor/mindfulmate/internal/router"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Router is the conversational core behind the HTTP API.
type Router interface {
	Handle(ctx context.Context, userID, message string) (router.Reply, error)
	Session(ctx context.Context, userID string) (history.Session, error)
}

// Prober sends a single message to the hosted model for diagnostics.
type Prober interface {
	Complete(ctx context.Context, msgs []openai.ChatCompletionMessage) (llm.Completion, error)
	Model() string
}

// Handler handles HTTP requests.
type Handler struct {
	router Router
	prober Prober
}

// NewHandler creates a new handler.
func NewHandler(r Router, p Prober) *Handler {
	return &Handler{router: r, prober: p}
}

// RegisterRoutes registers all routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.page("index.html"))
	e.GET("/disclaimer", h.page("disclaimer.html"))
	e.GET("/resources", h.page("resources.html"))

	e.POST("/chat", h.Chat)
	e.POST("/feedback", h.Feedback)
	e.GET("/session/:user_id", h.GetSession)

	e.GET("/health", h.Health)
	e.GET("/test", h.Test)
	e.GET("/test-llm", h.TestLLM)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

// Test confirms that routing works.
// GET /test
func (h *Handler) Test(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Test route is working!",
	})
}
