package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sashabaranov/go-openai"

	"github.com/comigor/mindfulmate/internal/logger"
)

// TestLLM sends "Hello" to the hosted model and reports the outcome.
// GET /test-llm
func (h *Handler) TestLLM(c echo.Context) error {
	out, err := h.prober.Complete(c.Request().Context(), []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: "Hello"},
	})
	if err != nil {
		logger.L.Error("LLM probe failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"success":    false,
			"error":      err.Error(),
			"model":      h.prober.Model(),
			"api_status": "failed",
			"timestamp":  time.Now().UTC(),
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":       true,
		"response":      out.Text,
		"model":         h.prober.Model(),
		"api_status":    "working",
		"finish_reason": out.FinishReason,
		"total_tokens":  out.Usage.TotalTokens,
		"timestamp":     time.Now().UTC(),
	})
}
