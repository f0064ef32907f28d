package app

import (
	"chat_notifier/internal/notifyserver/domain"
	"chat_notifier/pkg/logger"
	"chat_notifier/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// NotifyHandler HTTP side of the notification server
type NotifyHandler struct {
	uc *NotifyUseCase
}

// NewNotifyHandler create NotifyHandler
func NewNotifyHandler(uc *NotifyUseCase) *NotifyHandler {
	return &NotifyHandler{uc: uc}
}

// MarkSeen godoc
// @Summary Mark all notifications as seen
// @Description Clears the caller's unseen list and pushes the empty list to the caller's notification socket.
// @Tags Notification
// @Accept json
// @Produce json
// @Param X-CSRFToken header string true "CSRF token, must equal the csrftoken cookie"
// @Success 200 {object} map[string]interface{} "Seen"
// @Failure 401 {object} string "Unauthorized"
// @Failure 403 {object} string "CSRF token mismatch"
// @Failure 500 {object} string "Internal Server Error"
// @Router /mark-notifications-seen/ [post]
func (h *NotifyHandler) MarkSeen(c *fiber.Ctx) error {
	userID, ok := c.Locals(middlewares.TokenUserID).(int)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "Missing user"})
	}

	if err := h.uc.MarkSeen(c.UserContext(), userID); err != nil {
		logger.Log.Error("mark notifications seen failed", zap.Int("user_id", userID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true})
}

// Push godoc
// @Summary Push a notification
// @Description Appends a notification from the caller to the target user's unseen list and delivers it on the target's socket.
// @Tags Notification
// @Accept json
// @Produce json
// @Param userId path int true "Target user id"
// @Param request body domain.PushRequest true "Message"
// @Success 201 {object} map[string]interface{} "Created notification"
// @Failure 400 {object} string "Bad Request"
// @Failure 401 {object} string "Unauthorized"
// @Failure 500 {object} string "Internal Server Error"
// @Router /notifications/{userId}/ [post]
func (h *NotifyHandler) Push(c *fiber.Ctx) error {
	target, err := c.ParamsInt("userId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}
	sender, _ := c.Locals(middlewares.TokenUsername).(string)

	var req domain.PushRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	n, err := h.uc.Push(c.UserContext(), target, sender, req.Message)
	if err != nil {
		logger.Log.Error("push notification failed", zap.Int("user_id", target), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"notification": n})
}
