package domain

import "fmt"

// PushRequest POST /notifications/:userId/ body
type PushRequest struct {
	Message string `json:"message"`
}

// LoginRequest POST /login/ body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse token and csrf token, both also set as cookies
type LoginResponse struct {
	UserID    int    `json:"user_id"`
	Token     string `json:"token"`
	CSRFToken string `json:"csrf_token"`
}

// Channel pub/sub channel of one user's notification socket
func Channel(userID int) string {
	return fmt.Sprintf("notification:user:%d", userID)
}

// UnseenKey redis list of one user's unseen notifications
func UnseenKey(userID int) string {
	return fmt.Sprintf("notification:unseen:%d", userID)
}
