package app

import (
	"context"
	"sync"

	"chat_notifier/pkg/logger"

	"go.uber.org/zap"
)

// Registration a registered worker script and its active worker
type Registration struct {
	Scope     string
	ScriptURL string

	mu     sync.Mutex
	active *Worker
}

// Active the active worker, nil when none
func (r *Registration) Active() Port {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return nil
	}
	return r.active
}

// ActiveWorker concrete active worker, nil when none
func (r *Registration) ActiveWorker() *Worker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *Registration) setActive(w *Worker) *Worker {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.active
	r.active = w
	return old
}

// WorkerFactory build a fresh worker for a script
type WorkerFactory func(scriptURL string) *Worker

// Container page side view of service workers: registration, controller, ready
type Container struct {
	newWorker WorkerFactory

	mu           sync.Mutex
	registration *Registration
	controller   *Worker
	ready        chan struct{}
	readyOnce    sync.Once
}

// NewContainer create an empty container
func NewContainer(factory WorkerFactory) *Container {
	return &Container{
		newWorker: factory,
		ready:     make(chan struct{}),
	}
}

// Register install and activate a worker for scriptURL under scope.
// The worker's goroutine lives until ctx ends or the container is closed.
func (c *Container) Register(ctx context.Context, scriptURL, scope string) (*Registration, error) {
	c.mu.Lock()
	reg := c.registration
	if reg == nil || reg.ScriptURL != scriptURL || reg.Scope != scope {
		reg = &Registration{Scope: scope, ScriptURL: scriptURL}
		c.registration = reg
	}
	c.mu.Unlock()

	w := c.newWorker(scriptURL)
	w.claim = c.claim
	go w.Run(ctx)

	if err := w.Install(ctx); err != nil {
		w.Stop()
		return nil, err
	}
	// skipWaiting 已呼叫, 不等舊 worker 結束
	if err := w.Activate(ctx); err != nil {
		w.Stop()
		return nil, err
	}

	if old := reg.setActive(w); old != nil && old != w {
		old.Stop()
	}
	c.readyOnce.Do(func() { close(c.ready) })

	logger.Log.Info("Service Worker registered", zap.String("scope", scope), zap.String("script", scriptURL))
	return reg, nil
}

func (c *Container) claim(w *Worker) {
	c.mu.Lock()
	c.controller = w
	c.mu.Unlock()
}

// Controller worker controlling this page, nil when none
func (c *Container) Controller() Port {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return nil
	}
	return c.controller
}

// Ready block until a registration has an activated worker
func (c *Container) Ready(ctx context.Context) (*Registration, error) {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registration, nil
}

// Close stop the active worker; the registration stays but has no active worker
func (c *Container) Close() {
	c.mu.Lock()
	reg := c.registration
	c.controller = nil
	c.mu.Unlock()

	if reg == nil {
		return
	}
	if w := reg.setActive(nil); w != nil {
		w.Stop()
	}
}
