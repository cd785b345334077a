package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxUsername returns the identity injected by the Auth middleware.
func ctxUsername(c echo.Context) (string, error) {
	username, _ := c.Get("username").(string)
	if username == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return username, nil
}
