package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"demystifier-backend/internal/document"
	"demystifier-backend/internal/model"
	"demystifier-backend/internal/service"
	"demystifier-backend/internal/utils"
	"demystifier-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Analyzer interface {
	AnalyzeDocument(ctx context.Context, payload model.AnalyzePayload) (*model.AnalysisResult, error)
}

type ChatStreamer interface {
	StreamChat(ctx context.Context, payload model.ChatPayload) (<-chan string, <-chan error)
}

// GeminiHandler serves POST /api/gemini. The action field of the envelope
// selects a one-shot analysis or a streamed chat reply.
type GeminiHandler struct {
	analysis      Analyzer
	chat          ChatStreamer
	policy        document.Policy
	streamTimeout time.Duration
}

func NewGeminiHandler(analysis Analyzer, chat ChatStreamer, policy document.Policy, streamTimeout time.Duration) *GeminiHandler {
	return &GeminiHandler{
		analysis:      analysis,
		chat:          chat,
		policy:        policy,
		streamTimeout: streamTimeout,
	}
}

func (h *GeminiHandler) Handle(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusMethodNotAllowed, model.ErrorResponse{Error: "Method not allowed"})
		return
	}

	var env model.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, model.ErrorResponse{Error: msgBodyTooLarge})
			return
		}
		logger.Warnf("[%s] Invalid request body: %v", requestID(c), err)
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request body"})
		return
	}

	switch env.Action {
	case model.ActionAnalyze:
		h.analyze(c, env.Payload)
	case model.ActionChat:
		h.streamChat(c, env.Payload)
	default:
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid action"})
	}
}

func (h *GeminiHandler) analyze(c *gin.Context, raw json.RawMessage) {
	var payload model.AnalyzePayload
	if !decodePayload(c, raw, &payload) {
		return
	}

	logger.Debugf("[%s] Analyze: %d text bytes, file=%t", requestID(c), len(payload.Text), payload.File != nil)

	result, err := h.analysis.AnalyzeDocument(c.Request.Context(), payload)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *GeminiHandler) streamChat(c *gin.Context, raw json.RawMessage) {
	var payload model.ChatPayload
	if !decodePayload(c, raw, &payload) {
		return
	}

	ctx, cancel := h.streamContext(c.Request.Context())
	defer cancel()

	respChan, errChan := h.chat.StreamChat(ctx, payload)
	writer := utils.NewTextStreamWriter(c.Writer)

	for fragment := range respChan {
		if err := writer.Write(fragment); err != nil {
			logger.Warnf("[%s] Client went away: %v", requestID(c), err)
			cancel()
			for range respChan {
			}
			break
		}
	}

	err := <-errChan
	switch {
	case err == nil:
		// an empty reply still answers 200
		writer.Start()
	case !writer.Started():
		h.writeError(c, err)
	default:
		// Headers are gone; the body ends where the reply broke off.
		logger.WithFields(logrus.Fields{
			"request_id": requestID(c),
			"error":      err.Error(),
		}).Error("chat stream interrupted")
	}
}

func (h *GeminiHandler) streamContext(parent context.Context) (context.Context, context.CancelFunc) {
	if h.streamTimeout > 0 {
		return context.WithTimeout(parent, h.streamTimeout)
	}
	return context.WithCancel(parent)
}

// decodePayload treats an absent or null payload as empty.
func decodePayload(c *gin.Context, raw json.RawMessage, v any) bool {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return true
	}
	if err := json.Unmarshal(raw, v); err != nil {
		logger.Warnf("[%s] Invalid payload: %v", requestID(c), err)
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request payload"})
		return false
	}
	return true
}

func (h *GeminiHandler) writeError(c *gin.Context, err error) {
	status, msg := h.classify(err)
	if status >= http.StatusInternalServerError {
		logger.WithFields(logrus.Fields{
			"request_id": requestID(c),
			"error":      err.Error(),
		}).Error("request failed")
	}
	c.JSON(status, model.ErrorResponse{Error: msg})
}

func (h *GeminiHandler) classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "Either text or a file must be provided."
	case errors.Is(err, service.ErrInvalidFile):
		return http.StatusBadRequest, h.policy.Message(err)
	case errors.Is(err, service.ErrInvalidChatType):
		return http.StatusBadRequest, "Invalid chat type"
	case errors.Is(err, service.ErrEmptyHistory):
		return http.StatusBadRequest, "History must contain at least one message."
	default:
		return http.StatusInternalServerError, msgInternalError
	}
}
