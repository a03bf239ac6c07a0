package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"poetloop/domain"
)

const maxDerivedTitleChars = 50

// chatRequest is the body for the chat endpoints.
type chatRequest struct {
	Messages       domain.Exchange `json:"messages"`
	ConversationID *int64          `json:"conversation_id,omitempty"`
}

// Chat resolves one exchange to a final reply without persisting anything.
// POST /v1/chat
func (h *Handler) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
	}
	if len(req.Messages) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "messages must not be empty"})
	}

	reply, err := h.orch.Run(c.Request().Context(), req.Messages)
	if err != nil {
		return chatError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"reply": reply})
}

// ChatWithStorage resolves an exchange and persists the incoming messages
// plus the assistant reply into a conversation. Without a conversation_id a
// new conversation is created with a title derived from the first user
// message.
// POST /v1/chat/storage
func (h *Handler) ChatWithStorage(c echo.Context) error {
	ctx := c.Request().Context()

	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
	}
	if len(req.Messages) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "messages must not be empty"})
	}

	// Fail before generation if the target conversation does not exist.
	if req.ConversationID != nil {
		conv, err := h.store.GetConversationWithMessages(ctx, *req.ConversationID)
		if err != nil {
			log.Printf("ERROR: failed to check conversation: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to check conversation"})
		}
		if conv == nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "conversation not found"})
		}
	}

	reply, err := h.orch.Run(ctx, req.Messages)
	if err != nil {
		return chatError(c, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	conversationID, err := h.persistExchange(ctx, req.ConversationID, req.Messages, reply, now)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "conversation not found"})
		}
		log.Printf("ERROR: failed to persist exchange: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to persist exchange"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"conversation_id": conversationID,
		"reply":           reply,
	})
}

// Prompt wraps a single user prompt into an exchange and resolves it.
// POST /v1/prompt
func (h *Handler) Prompt(c echo.Context) error {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "prompt must not be empty"})
	}

	reply, err := h.orch.Run(c.Request().Context(), domain.Exchange{domain.UserMessage{Content: req.Prompt}})
	if err != nil {
		return chatError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"reply": reply})
}

// persistExchange writes the incoming messages and the assistant reply, all
// stamped with the same timestamp. Must be called with the mutex held.
func (h *Handler) persistExchange(ctx context.Context, conversationID *int64, exchange domain.Exchange, reply string, now int64) (int64, error) {
	var id int64
	if conversationID != nil {
		id = *conversationID
	} else {
		conv, err := h.store.CreateConversation(ctx, deriveTitle(exchange), now)
		if err != nil {
			return 0, err
		}
		id = conv.ID
	}

	stored := storedFromExchange(exchange, now)
	stored = append(stored, domain.StoredMessage{
		Role:      domain.RoleAssistant,
		Content:   reply,
		Timestamp: now,
	})
	if _, err := h.store.AppendMessages(ctx, id, stored, now); err != nil {
		return 0, err
	}
	return id, nil
}

// deriveTitle builds a conversation title from the first user message.
func deriveTitle(exchange domain.Exchange) string {
	for _, m := range exchange {
		if u, ok := m.(domain.UserMessage); ok {
			title := strings.TrimSpace(u.Content)
			if r := []rune(title); len(r) > maxDerivedTitleChars {
				title = string(r[:maxDerivedTitleChars])
			}
			if title != "" {
				return title
			}
		}
	}
	return "New conversation"
}

// storedFromExchange flattens request-time messages into storage rows.
func storedFromExchange(exchange domain.Exchange, now int64) []domain.StoredMessage {
	out := make([]domain.StoredMessage, 0, len(exchange))
	for _, m := range exchange {
		var content string
		switch v := m.(type) {
		case domain.SystemMessage:
			content = v.Content
		case domain.UserMessage:
			content = v.Content
		case domain.AssistantMessage:
			content = v.Content
		case domain.ToolMessage:
			content = v.Content
		}
		out = append(out, domain.StoredMessage{
			Role:      m.Role(),
			Content:   content,
			Timestamp: now,
		})
	}
	return out
}

// chatError maps orchestration failures to HTTP responses. Upstream model
// failures surface as 502 so callers can distinguish them from bad input.
func chatError(c echo.Context, err error) error {
	if !errors.Is(err, domain.ErrEmptyResponse) && !errors.Is(err, domain.ErrToolLoopExceeded) {
		log.Printf("ERROR: chat failed: %v", err)
	}
	return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
}
