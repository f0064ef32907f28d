package router

import (
	"context"

	"chat_notifier/internal/notifyserver/app"
	"chat_notifier/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 註冊登入, 通知 socket 與通知 API
// @title Chat Notify Server API
// @version 1.0
// @description Dev notification server for the chat notifier
// @host localhost:8000
// @BasePath /
func RegisterRoutes(r *fiber.App, auth *app.AuthHandler, notify *app.NotifyHandler, ws *app.NotificationWebsocketHandler) {
	r.Get("/swagger/*", swagger.HandlerDefault)
	r.Post("/login/", auth.Login)

	r.Get("/ws/notification/:userId/", middlewares.JWTMiddleware(), sameUser, func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	}, websocket.New(func(c *websocket.Conn) {
		ws.HandleConnection(context.Background(), c)
	}))

	r.Post("/mark-notifications-seen/", middlewares.JWTMiddleware(), middlewares.CSRFMiddleware(), notify.MarkSeen)
	r.Post("/notifications/:userId/", middlewares.JWTMiddleware(), notify.Push)
}

// sameUser a socket may only be opened for the token's own user
func sameUser(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("userId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}
	if tokenID, _ := c.Locals(middlewares.TokenUserID).(int); tokenID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	return c.Next()
}
