package main

import (
	"bufio"
	"context"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"chat_notifier/internal/chat/app"
	"chat_notifier/internal/chat/domain"
	"chat_notifier/pkg/config"
	"chat_notifier/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Direct or group chat against the chat server",
	RunE:  runChat,
}

var (
	flagPeerID   int
	flagPeerName string
	flagGroupID  int
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.IntVar(&flagPeerID, "peer", 0, "user id to chat with")
	flags.StringVar(&flagPeerName, "peer-name", "", "username of --peer")
	flags.IntVar(&flagGroupID, "group", 0, "group id to join")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// 與 notifier 共用同一份身分設定
func runChat(cmd *cobra.Command, args []string) error {
	if flagPeerID == 0 && flagGroupID == 0 {
		return fmt.Errorf("either --peer or --group is required")
	}

	logger.Log = logger.Initialize(config.EnvConfig.Notifier, config.EnvConfig.NotifierLogPath)
	defer logger.Log.Sync()

	cfg, err := config.LoadConfig[config.Notifier](config.EnvConfig.Notifier, config.EnvConfig.NotifierYAMLPath)
	if err != nil {
		logger.Log.Fatal("load config failed", zap.Error(err))
	}
	logger.Log.SetDebugMode(cfg.Debug)

	me := app.Identity{
		BaseURL:   cfg.Server.BaseURL,
		UserID:    cfg.Server.UserID,
		Username:  cfg.Server.Username,
		AuthToken: cfg.Server.AuthToken,
		CSRFToken: cfg.Server.CSRFToken,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	presence, err := app.NewPresence(me, func(u domain.PresenceUpdate) {
		fmt.Printf("* %s is %s\n", u.Username, map[bool]string{true: "online", false: "offline"}[u.OnlineStatus])
	})
	if err != nil {
		logger.Log.Fatal("presence socket", zap.Error(err))
	}
	go presence.Run(ctx)
	defer presence.Leave()

	var send func(line string) error
	var sendFile func(path string) error

	if flagGroupID != 0 {
		group, err := app.NewGroupChat(me, flagGroupID, app.GroupReconnectInterval, func(m domain.GroupMessage) {
			fmt.Printf("[%s] %s\n", m.SenderName(me.UserID), m.Message)
		})
		if err != nil {
			logger.Log.Fatal("group socket", zap.Error(err))
		}
		go group.Run(ctx)
		defer group.Leave()
		send = group.Send
	} else {
		direct, err := app.NewDirectChat(me, flagPeerID, flagPeerName, func(m domain.DirectMessage) {
			if m.IsFile() {
				fmt.Printf("[%s] sent %s (%s)\n", m.Username, m.FileData.Filename, m.FileData.FileURL)
				return
			}
			fmt.Printf("[%s] %s\n", m.Username, m.Message)
		})
		if err != nil {
			logger.Log.Fatal("direct socket", zap.Error(err))
		}
		go direct.Run(ctx)
		defer direct.Close()
		send = direct.SendText
		sendFile = func(path string) error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = direct.SendFile(ctx, filepath.Base(path), mime.TypeByExtension(filepath.Ext(path)), f)
			return err
		}
		logger.Log.Info("direct chat", zap.String("room", direct.Room()))
	}

	fmt.Println("type a message, /file <path>, /online <username> or /quit")
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			switch {
			case line == "":
			case line == "/quit":
				return nil
			case strings.HasPrefix(line, "/online "):
				name := strings.TrimSpace(strings.TrimPrefix(line, "/online "))
				fmt.Printf("%s: %s\n", name, presence.Label(name))
			case strings.HasPrefix(line, "/file "):
				if sendFile == nil {
					fmt.Println("files can only be sent in direct chats")
					continue
				}
				if err := sendFile(strings.TrimSpace(strings.TrimPrefix(line, "/file "))); err != nil {
					fmt.Println("upload failed:", err)
				}
			default:
				if err := send(line); err != nil {
					fmt.Println("send failed:", err)
				}
			}
		}
	}
}
