package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/comigor/mindfulmate/internal/history"
	"github.com/comigor/mindfulmate/internal/intent"
	"github.com/comigor/mindfulmate/internal/llm"
	"github.com/comigor/mindfulmate/internal/logger"
	"github.com/comigor/mindfulmate/internal/router"
)

const defaultUserID = "anonymous"

// User-facing messages for failed requests.
const (
	MsgAuthError     = "There's an issue with the AI service authentication. Please contact support."
	MsgChatError     = "I encountered an error processing your request. Please try again."
	MsgResearchError = "I encountered an error while researching that topic. Could you try rephrasing your question?"
)

type chatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// ChatResponse is the body of a successful /chat call.
type ChatResponse struct {
	Response  string        `json:"response"`
	Status    string        `json:"status"`
	IsCrisis  bool          `json:"is_crisis"`
	Intent    intent.Intent `json:"intent"`
	UserID    string        `json:"user_id"`
	Timestamp time.Time     `json:"timestamp"`
}

// ErrorResponse is the body of a failed /chat call.
type ErrorResponse struct {
	Response     string `json:"response"`
	Status       string `json:"status"`
	ErrorDetails string `json:"error_details"`
}

// Chat routes one user message.
// POST /chat
func (h *Handler) Chat(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		logger.L.Error("read body error", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No data received"})
	}

	// Decoded by hand rather than with c.Bind: Bind accepts an empty body,
	// null or {} as a zero request, which must be "No data received" and not
	// "Empty message".
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) == 0 {
		logger.L.Error("no data received in the request")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No data received"})
	}
	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		logger.L.Error("invalid chat request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No data received"})
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		logger.L.Error("empty message received")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Empty message"})
	}
	userID := req.UserID
	if userID == "" {
		userID = defaultUserID
	}

	reply, err := h.router.Handle(c.Request().Context(), userID, message)
	if err != nil {
		return h.chatError(c, err)
	}

	return c.JSON(http.StatusOK, ChatResponse{
		Response:  reply.Text,
		Status:    "success",
		IsCrisis:  reply.IsCrisis,
		Intent:    reply.Intent,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handler) chatError(c echo.Context, err error) error {
	logger.L.Error("error in /chat endpoint", "error", err)

	if llm.IsAuthError(err) {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Response:     MsgAuthError,
			Status:       "error",
			ErrorDetails: "API authentication error",
		})
	}

	msg := MsgChatError
	var rerr *router.Error
	if errors.As(err, &rerr) && rerr.Intent == intent.Research {
		msg = MsgResearchError
	}
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Response:     msg,
		Status:       "error",
		ErrorDetails: err.Error(),
	})
}

// GetSession summarizes a user's stored conversation.
// GET /session/:user_id
func (h *Handler) GetSession(c echo.Context) error {
	sess, err := h.router.Session(c.Request().Context(), c.Param("user_id"))
	if errors.Is(err, history.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"status": "session_not_found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"status": "error", "error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status": "success",
		"session": map[string]any{
			"user_id":       sess.UserID,
			"created_at":    sess.CreatedAt,
			"message_count": len(sess.History),
		},
	})
}
