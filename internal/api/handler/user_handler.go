package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/directchat/chat-server/internal/core/ports"
)

// UserHandler serves the contact list.
type UserHandler struct {
	service ports.ConversationService
}

func NewUserHandler(service ports.ConversationService) *UserHandler {
	return &UserHandler{service: service}
}

type userSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Online   bool   `json:"online"`
}

// List returns every user except the caller.
//
// @Summary      List other users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   userSummary
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	username, err := ctxUsername(c)
	if err != nil {
		return err
	}

	users, err := h.service.ListUsers(c.Request().Context(), username)
	if err != nil {
		return err
	}

	out := make([]userSummary, 0, len(users))
	for _, u := range users {
		out = append(out, userSummary{ID: u.ID, Username: u.Username, Online: u.Online})
	}
	return c.JSON(http.StatusOK, out)
}
