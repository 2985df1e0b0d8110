// internal/api/websocket.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tbellini/arcanum/internal/apperrors"
	"github.com/tbellini/arcanum/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 60 * time.Second
)

// generateWSRequest is the single message a client sends after connecting.
type generateWSRequest struct {
	Prompt string `json:"prompt"`
}

// generateWSEvent is a progress or terminal frame sent to the client.
type generateWSEvent struct {
	Stage string      `json:"stage"`
	Item  interface{} `json:"item,omitempty"`
	Error *APIError   `json:"error,omitempty"`
}

// WSHandler serves the streaming generation endpoint. Model calls take long
// enough that a plain request can look stalled; the socket lets the client
// show progress stages while the call is in flight.
type WSHandler struct {
	generator *services.GeneratorService
	logger    *zap.SugaredLogger
}

// NewWSHandler builds the websocket handler over the generator service.
func NewWSHandler(generator *services.GeneratorService, logger *zap.SugaredLogger) *WSHandler {
	return &WSHandler{
		generator: generator,
		logger:    logger,
	}
}

// GenerateItem upgrades the connection, reads one generation request and
// streams accepted -> generating -> validating -> result (or error) frames.
// The connection closes after the terminal frame.
func (h *WSHandler) GenerateItem(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

	var req generateWSRequest
	if err := conn.ReadJSON(&req); err != nil {
		h.writeEvent(conn, generateWSEvent{
			Stage: "error",
			Error: &APIError{Code: "BAD_REQUEST", Message: "invalid request message"},
		})
		return
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" || len(prompt) > maxPromptLength {
		h.writeEvent(conn, generateWSEvent{
			Stage: "error",
			Error: &APIError{Code: "VALIDATION_ERROR", Message: "prompt must be 1 to 500 characters"},
		})
		return
	}

	if !h.writeEvent(conn, generateWSEvent{Stage: "accepted"}) {
		return
	}
	if !h.writeEvent(conn, generateWSEvent{Stage: "generating"}) {
		return
	}

	item, err := h.generator.GenerateItem(c.Request.Context(), prompt)
	if err != nil {
		h.writeEvent(conn, generateWSEvent{
			Stage: "error",
			Error: wsErrorFor(err),
		})
		return
	}

	if !h.writeEvent(conn, generateWSEvent{Stage: "validating"}) {
		return
	}

	h.writeEvent(conn, generateWSEvent{Stage: "result", Item: item})
}

func (h *WSHandler) writeEvent(conn *websocket.Conn, event generateWSEvent) bool {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(event); err != nil {
		h.logger.Debugw("websocket write failed", "error", err)
		return false
	}
	return true
}

func wsErrorFor(err error) *APIError {
	switch {
	case apperrors.IsValidationError(err):
		return &APIError{Code: "VALIDATION_ERROR", Message: err.Error()}
	case apperrors.IsDataSourceError(err):
		return &APIError{Code: "DATA_SOURCE_ERROR", Message: err.Error()}
	case apperrors.IsResponseFormatError(err):
		return &APIError{Code: "LLM_RESPONSE_ERROR", Message: err.Error()}
	default:
		return &APIError{Code: "INTERNAL_ERROR", Message: err.Error()}
	}
}
