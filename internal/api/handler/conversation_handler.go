package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/directchat/chat-server/internal/core/ports"
)

type ConversationHandler struct {
	service ports.ConversationService
}

func NewConversationHandler(service ports.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// Messages returns the history between the caller and :id, oldest first.
//
// @Summary      Conversation history
// @Tags         conversations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Peer username"
// @Success      200  {array}   domain.Message
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /conversations/{id}/messages [get]
func (h *ConversationHandler) Messages(c echo.Context) error {
	username, err := ctxUsername(c)
	if err != nil {
		return err
	}

	msgs, err := h.service.History(c.Request().Context(), username, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, msgs)
}
