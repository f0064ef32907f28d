package domain

import "fmt"

// Permission notification permission state
type Permission string

const (
	// PermissionDefault never asked, or the prompt was dismissed
	PermissionDefault Permission = "default"
	// PermissionGranted user allowed notifications
	PermissionGranted Permission = "granted"
	// PermissionDenied user blocked notifications
	PermissionDenied Permission = "denied"
)

// ParsePermission parse config value
func ParsePermission(s string) (Permission, error) {
	switch Permission(s) {
	case PermissionDefault, PermissionGranted, PermissionDenied:
		return Permission(s), nil
	case "":
		return PermissionDefault, nil
	}
	return "", fmt.Errorf("unknown permission %q", s)
}
