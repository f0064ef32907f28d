package middlewares

import (
	t_token "chat_notifier/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	//QueryToken token in query name
	QueryToken = "auth"

	//CookieToken token in cookie name
	CookieToken = "auth_token"

	//CookieCSRF csrf token cookie name
	CookieCSRF = "csrftoken"
	//HeaderCSRF csrf token header name
	HeaderCSRF = "X-CSRFToken"

	//TokenUserID get user id form token, set c.locals name
	TokenUserID = "UserID"
	//TokenUsername get username form token, set c.locals name
	TokenUsername = "Username"
)

// JWTMiddleware validates JWT in the auth query or auth_token cookie
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Query(QueryToken)

		// 如果查詢參數中沒有 token，則嘗試從 Cookie 中獲取
		if tokenStr == "" {
			tokenStr = c.Cookies(CookieToken)
		}

		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		claims, err := t_token.ParseJWT(tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(TokenUserID, claims.UserID)
		c.Locals(TokenUsername, claims.Username)
		return c.Next()
	}
}

// CSRFMiddleware double-submit check: X-CSRFToken header must equal the csrftoken cookie
func CSRFMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cookie := c.Cookies(CookieCSRF)
		header := c.Get(HeaderCSRF)
		if cookie == "" || header != cookie {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "CSRF verification failed",
			})
		}
		return c.Next()
	}
}
