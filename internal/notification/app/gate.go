package app

import (
	"context"

	"chat_notifier/internal/notification/domain"
	errprocess "chat_notifier/pkg/err"
	"chat_notifier/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// PermissionStore current notification permission
type PermissionStore interface {
	Load(ctx context.Context) (domain.Permission, error)
	Save(ctx context.Context, p domain.Permission) error
}

// Prompter asks the user for notification permission.
// A dismissed prompt answers PermissionDefault.
type Prompter interface {
	RequestPermission(ctx context.Context) (domain.Permission, error)
}

// PermissionGate decides, per notification, whether it may be shown
type PermissionGate struct {
	store    PermissionStore
	prompter Prompter
	group    singleflight.Group
}

// NewPermissionGate store nil means the platform has no notification support;
// prompter nil means a default permission is never upgraded.
func NewPermissionGate(store PermissionStore, prompter Prompter) *PermissionGate {
	return &PermissionGate{store: store, prompter: prompter}
}

// Supported whether notifications can be shown at all
func (g *PermissionGate) Supported() bool {
	return g.store != nil
}

// Allow resolve the permission for one notification. granted passes, denied
// drops without asking again, default asks once and only a granted answer passes.
func (g *PermissionGate) Allow(ctx context.Context) (bool, error) {
	if !g.Supported() {
		logger.Log.Warn("This platform does not support notifications")
		return false, errprocess.ErrPermissionUnsupported
	}

	p, err := g.store.Load(ctx)
	if err != nil {
		return false, err
	}

	switch p {
	case domain.PermissionGranted:
		return true, nil
	case domain.PermissionDenied:
		logger.Log.Debug("notification permission denied, dropping")
		return false, nil
	}

	answer, err := g.request(ctx)
	if err != nil {
		return false, err
	}
	return answer == domain.PermissionGranted, nil
}

// 同時到達的通知只跳一次提示
func (g *PermissionGate) request(ctx context.Context) (domain.Permission, error) {
	if g.prompter == nil {
		return domain.PermissionDefault, nil
	}

	v, err, shared := g.group.Do("permission", func() (interface{}, error) {
		answer, err := g.prompter.RequestPermission(ctx)
		if err != nil {
			return domain.PermissionDefault, err
		}
		if answer != domain.PermissionDefault {
			if err := g.store.Save(ctx, answer); err != nil {
				logger.Log.Error("save notification permission failed", zap.Error(err))
			}
		}
		logger.Log.Info("notification permission answered", zap.String("permission", string(answer)))
		return answer, nil
	})
	if err != nil {
		return domain.PermissionDefault, err
	}
	if shared {
		logger.Log.Debug("permission prompt shared with a concurrent notification")
	}
	return v.(domain.Permission), nil
}
