package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	napp "chat_notifier/internal/notification/app"
	ndomain "chat_notifier/internal/notification/domain"
	nrepo "chat_notifier/internal/notification/repository"
	"chat_notifier/internal/notification/view"
	swapp "chat_notifier/internal/serviceworker/app"
	swrepo "chat_notifier/internal/serviceworker/repository"
	"chat_notifier/pkg/config"
	"chat_notifier/pkg/database"
	"chat_notifier/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Chat notification dropdown with a simulated service worker",
	RunE:  runNotifier,
}

var (
	flagPrompt string
	flagRender string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagPrompt, "prompt", "", "override notification.prompt: interactive | form | grant | deny")
	flags.StringVar(&flagRender, "render", "", "override render: terminal | html | none")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runNotifier(cmd *cobra.Command, args []string) error {
	logger.Log = logger.Initialize(config.EnvConfig.Notifier, config.EnvConfig.NotifierLogPath)
	defer logger.Log.Sync()

	cfg, err := config.LoadConfig[config.Notifier](config.EnvConfig.Notifier, config.EnvConfig.NotifierYAMLPath)
	if err != nil {
		logger.Log.Fatal("load config failed", zap.Error(err))
	}
	if flagPrompt != "" {
		cfg.Notification.Prompt = flagPrompt
	}
	if flagRender != "" {
		cfg.Render = flagRender
	}
	cfg.ApplyDefaults()
	logger.Log.SetDebugMode(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. service worker
	displayer, err := newDisplayer(cfg)
	if err != nil {
		logger.Log.Fatal("display backend", zap.Error(err))
	}
	var opener swapp.Opener
	if cfg.ServiceWorker.OpenWindows {
		opener = swrepo.OpenBrowser
	}
	windows := swapp.NewWindowClients(cfg.Server.BaseURL, opener)
	container := swapp.NewContainer(func(scriptURL string) *swapp.Worker {
		return swapp.NewWorker(scriptURL, displayer, windows, cfg.ServiceWorker.InboxSize)
	})
	defer container.Close()

	reg, err := container.Register(ctx, cfg.ServiceWorker.ScriptURL, cfg.ServiceWorker.Scope)
	if err != nil {
		logger.Log.Error("Service Worker registration failed", zap.Error(err))
	}

	// 2. permission
	initial, err := ndomain.ParsePermission(cfg.Notification.Permission)
	if err != nil {
		logger.Log.Fatal("invalid notification permission", zap.Error(err))
	}
	store, err := newPermissionStore(ctx, cfg, initial)
	if err != nil {
		logger.Log.Fatal("permission store", zap.Error(err))
	}
	prompter, err := nrepo.NewPrompter(cfg.Notification.Prompt, os.Stdout)
	if err != nil {
		logger.Log.Fatal("permission prompt", zap.Error(err))
	}
	gate := napp.NewPermissionGate(store, prompter)

	// 3. mark-as-seen client
	marker, err := nrepo.NewMarkSeenClient(cfg.Server.BaseURL, cfg.Server.AuthToken, cfg.Server.CSRFToken)
	if err != nil {
		logger.Log.Fatal("mark seen client", zap.Error(err))
	}

	session := napp.NewSession(napp.SessionConfig{
		BaseURL:           cfg.Server.BaseURL,
		UserID:            cfg.Server.UserID,
		AuthToken:         cfg.Server.AuthToken,
		ReconnectInterval: cfg.Notification.ReconnectInterval,
	}, gate, napp.NewRelay(container, cfg.Notification.Icon), marker, newRenderer(cfg.Render))

	if err := session.Start(ctx); err != nil {
		logger.Log.Fatal("start notification session", zap.Error(err))
	}
	defer session.Close()

	logger.Log.Info("notifier running", zap.Int("user_id", cfg.Server.UserID), zap.String("server", cfg.Server.BaseURL))

	// huh form 自己讀 stdin, 這時不開 command loop
	if _, ok := prompter.(nrepo.TerminalPrompter); ok {
		fmt.Println("prompt=form owns the terminal, stop with Ctrl+C")
		<-ctx.Done()
		return nil
	}
	asker, _ := prompter.(*nrepo.LinePrompter)

	fmt.Println("commands: read | click | status | quit")
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case text, ok := <-lines:
			if !ok {
				return nil
			}
			if asker != nil && asker.Answer(text) {
				continue
			}
			switch text {
			case "read":
				if err := session.MarkAllAsRead(ctx); err != nil {
					fmt.Println("mark as read failed:", err)
				}
			case "click":
				clickLatest(reg)
			case "status":
				fmt.Println(view.RenderTerminal(view.Build(session.Snapshot(), time.Now(), nil)))
			case "quit", "exit":
				return nil
			case "":
			default:
				fmt.Println("unknown command:", text)
			}
		}
	}
}

func newDisplayer(cfg config.Notifier) (swapp.Displayer, error) {
	switch cfg.ServiceWorker.Display {
	case "console":
		return swrepo.NewConsoleDisplayer(os.Stdout), nil
	case "webpush":
		return swrepo.NewWebPushDisplayer(cfg.WebPush)
	}
	return nil, fmt.Errorf("unknown display %q", cfg.ServiceWorker.Display)
}

func newPermissionStore(ctx context.Context, cfg config.Notifier, initial ndomain.Permission) (napp.PermissionStore, error) {
	switch cfg.Notification.PermissionStore {
	case "memory":
		return nrepo.NewMemoryPermissionStore(initial), nil
	case "redis":
		client, err := database.NewRedisClient(ctx, database.Connection{
			ConnectStr:    cfg.Redis.Addr,
			RetryCount:    cfg.Redis.RetryCount,
			RetryInterval: cfg.Redis.RetryInterval,
		}, cfg.Redis.RedisDB)
		if err != nil {
			return nil, err
		}
		return nrepo.NewRedisPermissionStore(client, cfg.Server.UserID, initial), nil
	}
	return nil, fmt.Errorf("unknown permission store %q", cfg.Notification.PermissionStore)
}

func newRenderer(mode string) napp.Renderer {
	switch mode {
	case "html":
		return view.NewHTMLRenderer(os.Stdout)
	case "none":
		return view.NopRenderer{}
	default:
		return view.NewTerminalRenderer(os.Stdout)
	}
}

// clickLatest 模擬點擊最新顯示的通知
func clickLatest(reg *swapp.Registration) {
	if reg == nil {
		fmt.Println("no service worker")
		return
	}
	w := reg.ActiveWorker()
	if w == nil {
		fmt.Println("no active service worker")
		return
	}
	shown := w.Displayed()
	if len(shown) == 0 {
		fmt.Println("nothing to click")
		return
	}
	if err := w.DispatchClick(shown[len(shown)-1].ID); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Println("click failed:", err)
	}
}
