package api

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// ListConversations returns all conversations, most recently updated first.
// GET /v1/conversations
func (h *Handler) ListConversations(c echo.Context) error {
	conversations, err := h.store.ListConversations(c.Request().Context())
	if err != nil {
		log.Printf("ERROR: failed to list conversations: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list conversations"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"conversations": conversations,
	})
}

// GetConversation returns a conversation with its full transcript.
// GET /v1/conversations/:id
func (h *Handler) GetConversation(c echo.Context) error {
	id, err := conversationID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
	}

	conv, err := h.store.GetConversationWithMessages(c.Request().Context(), id)
	if err != nil {
		log.Printf("ERROR: failed to get conversation: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get conversation"})
	}
	if conv == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "conversation not found"})
	}
	return c.JSON(http.StatusOK, conv)
}

// GetConversationMessages returns the ordered transcript for a conversation.
// An unknown conversation yields an empty list.
// GET /v1/conversations/:id/messages
func (h *Handler) GetConversationMessages(c echo.Context) error {
	id, err := conversationID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
	}

	messages, err := h.store.GetMessages(c.Request().Context(), id)
	if err != nil {
		log.Printf("ERROR: failed to get messages: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get messages"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": messages,
	})
}

// RenameConversation replaces a conversation's title. Reports whether the
// conversation existed; updated_at is untouched.
// PUT /v1/conversations/:id/title
func (h *Handler) RenameConversation(c echo.Context) error {
	id, err := conversationID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "title must not be empty"})
	}

	existed, err := h.store.RenameConversation(c.Request().Context(), id, req.Title)
	if err != nil {
		log.Printf("ERROR: failed to rename conversation: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to rename conversation"})
	}
	return c.JSON(http.StatusOK, map[string]bool{"existed": existed})
}

// DeleteConversation removes a conversation and its messages.
// DELETE /v1/conversations/:id
func (h *Handler) DeleteConversation(c echo.Context) error {
	id, err := conversationID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
	}

	h.mu.Lock()
	deleted, err := h.store.DeleteConversation(c.Request().Context(), id)
	h.mu.Unlock()
	if err != nil {
		log.Printf("ERROR: failed to delete conversation: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete conversation"})
	}
	return c.JSON(http.StatusOK, map[string]bool{"deleted": deleted})
}

func conversationID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
