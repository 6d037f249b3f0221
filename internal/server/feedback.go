package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/comigor/mindfulmate/internal/logger"
)

// Feedback logs whatever the client sends and always acknowledges it.
// POST /feedback
func (h *Handler) Feedback(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		logger.L.Warn("read feedback body", "error", err)
	}

	if json.Valid(body) {
		logger.L.Info("received feedback", "feedback", json.RawMessage(body))
	} else {
		logger.L.Info("received feedback", "raw", string(body))
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Feedback received",
	})
}
