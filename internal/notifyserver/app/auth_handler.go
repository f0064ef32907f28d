package app

import (
	"time"

	"chat_notifier/internal/notifyserver/domain"
	"chat_notifier/pkg/config"
	"chat_notifier/pkg/encrypt"
	"chat_notifier/pkg/logger"
	"chat_notifier/pkg/middlewares"
	t_token "chat_notifier/pkg/token"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Issuer JWT issuer of the notification server
const Issuer = "notify_server"

// AuthHandler password login against the configured users
type AuthHandler struct {
	users map[string]config.UserConfig
}

// NewAuthHandler index users by username
func NewAuthHandler(users []config.UserConfig) *AuthHandler {
	h := &AuthHandler{users: make(map[string]config.UserConfig, len(users))}
	for _, u := range users {
		h.users[u.Username] = u
	}
	return h
}

// Login godoc
// @Summary Login
// @Description Password login, sets the auth_token and csrftoken cookies.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.LoginRequest true "Credentials"
// @Success 200 {object} domain.LoginResponse "Login success response"
// @Failure 400 {object} string "Bad Request"
// @Failure 401 {object} string "Invalid username or password"
// @Router /login/ [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req domain.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	u, ok := h.users[req.Username]
	if !ok || encrypt.CheckPassword(u.PasswordHash, req.Password) != nil {
		logger.Log.Warn("login failed", zap.String("username", req.Username))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid username or password"})
	}

	tokenStr, err := t_token.GenerateJWT(u.ID, u.Username, Issuer)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	csrf, err := encrypt.NewCSRFToken()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	expires := time.Now().Add(24 * time.Hour)
	c.Cookie(&fiber.Cookie{Name: middlewares.CookieToken, Value: tokenStr, Path: "/", Expires: expires, HTTPOnly: true})
	c.Cookie(&fiber.Cookie{Name: middlewares.CookieCSRF, Value: csrf, Path: "/", Expires: expires})

	logger.Log.Info("login", zap.Int("user_id", u.ID), zap.String("username", u.Username))
	return c.JSON(domain.LoginResponse{UserID: u.ID, Token: tokenStr, CSRFToken: csrf})
}
