package http

import (
	"fmt"
	"net/http"
	"strings"

	"task-scheduler/internal/dto"
	"task-scheduler/internal/model"

	"github.com/labstack/echo/v4"
)

const contextKeyUser = "auth_user"

// RequireAuth verifies the bearer token, resolves the user and injects it into the
// request context.
func (h *HttpAPIHandler) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			return c.JSON(http.StatusUnauthorized, dto.NewBaseResponse(http.StatusUnauthorized, "missing bearer token", nil))
		}

		userID, err := h.service.AuthService.VerifyToken(token)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, dto.NewBaseResponse(http.StatusUnauthorized, "invalid or expired token", nil))
		}

		user, err := h.service.AuthService.GetUser(c.Request().Context(), userID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, "failed to resolve user", nil))
		}
		if user == nil {
			return c.JSON(http.StatusUnauthorized, dto.NewBaseResponse(http.StatusUnauthorized, "user no longer exists", nil))
		}

		c.Set(contextKeyUser, user)
		return next(c)
	}
}

// RateLimit applies a per-user token bucket once the user is known, falling back
// to the remote address for unauthenticated requests.
func (h *HttpAPIHandler) RateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.RealIP()
		if user := currentUser(c); user != nil {
			key = fmt.Sprintf("user:%d", user.ID)
		}
		if !h.limiter.Allow(key) {
			return c.JSON(http.StatusTooManyRequests, dto.NewBaseResponse(http.StatusTooManyRequests, "rate limit exceeded", nil))
		}
		return next(c)
	}
}

func currentUser(c echo.Context) *model.User {
	user, _ := c.Get(contextKeyUser).(*model.User)
	return user
}
