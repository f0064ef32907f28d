package errprocess

import (
	"errors"

	"chat_notifier/pkg/logger"
)

var (
	// ErrWorkerStopped worker inbox closed
	ErrWorkerStopped = errors.New("service worker stopped")
	// ErrNoActiveWorker registration resolved without an active worker
	ErrNoActiveWorker = errors.New("no active service worker")
	// ErrMarkSeenRejected server answered without success
	ErrMarkSeenRejected = errors.New("mark notifications seen rejected")
	// ErrPermissionUnsupported platform cannot show notifications
	ErrPermissionUnsupported = errors.New("notifications not supported")
	// ErrInvalidNotification payload without sender
	ErrInvalidNotification = errors.New("invalid notification data")
)

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}
