package chat

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"healthworks/api_assistant/pkg/auth"
	"healthworks/api_assistant/pkg/llm"
	"healthworks/api_assistant/pkg/logging"
)

// TurnWriter is the write side of the message store.
type TurnWriter interface {
	Insert(ctx context.Context, ownerID int64, text, sender, intent string) (int64, error)
}

// ConversationRunner produces the assistant's answer for one request.
type ConversationRunner interface {
	Run(ctx context.Context, ownerID int64, messages []llm.Message) (string, error)
}

// HistorySource loads prior turns for prompt context.
type HistorySource interface {
	Load(ctx context.Context, ownerID int64, limit int, excludeID int64) []Turn
}

// RateLimiter gates chat requests per owner. A nil limiter disables gating.
type RateLimiter interface {
	Allow(ownerID int64) (allowed bool, remaining int, resetIn time.Duration)
}

// Handler serves the chat endpoints.
type Handler struct {
	store      TurnWriter
	history    HistorySource
	runner     ConversationRunner
	sessions   auth.SessionValidator
	limiter    RateLimiter
	logger     logging.Logger
	production bool
	maxHistory int
}

// HandlerConfig wires a Handler's collaborators.
type HandlerConfig struct {
	Store      TurnWriter
	History    HistorySource
	Runner     ConversationRunner
	Sessions   auth.SessionValidator
	Limiter    RateLimiter
	Logger     logging.Logger
	Production bool
	MaxHistory int
}

// NewHandler creates the chat handler.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = defaultHistoryLimit
	}
	return &Handler{
		store:      cfg.Store,
		history:    cfg.History,
		runner:     cfg.Runner,
		sessions:   cfg.Sessions,
		limiter:    cfg.Limiter,
		logger:     cfg.Logger,
		production: cfg.Production,
		maxHistory: cfg.MaxHistory,
	}
}

// RegisterRoutes mounts the chat endpoints on the router.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.POST("/chat", h.HandleChat)
	router.GET("/chat/history", h.HandleHistory)
}

type chatResponse struct {
	Success   bool   `json:"success"`
	Response  string `json:"response,omitempty"`
	MessageID *int64 `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
	Details   string `json:"details,omitempty"`
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, chatResponse{Success: false, Error: message})
}

// HandleChat serves POST /chat.
//
// Validation runs in a fixed order so callers get deterministic errors:
// field presence, then field types, then non-empty message, then the
// Authorization header, then token validity. Nothing is persisted until all
// checks pass.
func (h *Handler) HandleChat(c *gin.Context) {
	var body struct {
		OwnerID any `json:"ownerId"`
		Message any `json:"message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "invalid request payload")
		return
	}
	if body.OwnerID == nil || body.Message == nil {
		fail(c, http.StatusBadRequest, "ownerId and message are required")
		return
	}
	ownerFloat, ownerOK := body.OwnerID.(float64)
	messageRaw, messageOK := body.Message.(string)
	if !ownerOK || !messageOK {
		fail(c, http.StatusBadRequest, "invalid type for ownerId or message")
		return
	}
	ownerID := int64(ownerFloat)
	message := strings.TrimSpace(messageRaw)
	if message == "" {
		fail(c, http.StatusBadRequest, "message must not be empty")
		return
	}

	token, ok := bearerToken(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "missing or invalid authorization header")
		return
	}
	principal, err := h.sessions.Validate(c.Request.Context(), token)
	if err != nil {
		fail(c, http.StatusUnauthorized, "invalid or expired session")
		return
	}

	if h.limiter != nil {
		allowed, _, resetIn := h.limiter.Allow(ownerID)
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(resetIn.Seconds())))
			fail(c, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}
	}

	ctx := c.Request.Context()
	log := h.logger.WithFields(map[string]interface{}{
		"owner_id":   ownerID,
		"subject":    principal.ID,
		"request_id": c.GetString("request_id"),
	})

	userTurnID, err := h.store.Insert(ctx, ownerID, message, SenderUser, "")
	if err != nil {
		log.WithError(err).Error("Failed to save user message")
		fail(c, http.StatusInternalServerError, "failed to save message")
		return
	}

	history := h.history.Load(ctx, ownerID, h.maxHistory, userTurnID)
	messages := buildPromptMessages(history, message)

	answer, err := h.runner.Run(ctx, ownerID, messages)
	if err != nil {
		log.WithError(err).Error("Chat completion failed")
		resp := chatResponse{Success: false, Error: "internal server error"}
		if !h.production {
			resp.Details = err.Error()
		}
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	resp := chatResponse{Success: true, Response: answer}
	if botTurnID, err := h.store.Insert(ctx, ownerID, answer, SenderBot, ""); err != nil {
		// The user already has their answer; losing the stored copy is
		// not worth failing the request over.
		log.WithError(err).Warn("Failed to save assistant message")
	} else {
		resp.MessageID = &botTurnID
	}
	c.JSON(http.StatusOK, resp)
}

// HandleHistory serves GET /chat/history?ownerId=N&limit=M for the chat UI.
func (h *Handler) HandleHistory(c *gin.Context) {
	ownerID, err := strconv.ParseInt(c.Query("ownerId"), 10, 64)
	if err != nil || ownerID <= 0 {
		fail(c, http.StatusBadRequest, "ownerId must be a positive number")
		return
	}
	limit := h.maxHistory
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			fail(c, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}

	token, ok := bearerToken(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "missing or invalid authorization header")
		return
	}
	if _, err := h.sessions.Validate(c.Request.Context(), token); err != nil {
		fail(c, http.StatusUnauthorized, "invalid or expired session")
		return
	}

	turns := h.history.Load(c.Request.Context(), ownerID, limit, 0)
	if turns == nil {
		turns = []Turn{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": turns})
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

// buildPromptMessages assembles system prompt, prior turns and the current
// user message into the model conversation.
func buildPromptMessages(history []Turn, userMessage string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	for _, turn := range history {
		role := "user"
		if turn.Sender == SenderBot {
			role = "assistant"
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Text})
	}
	return append(messages, llm.Message{Role: "user", Content: userMessage})
}
