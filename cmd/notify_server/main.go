package main

import (
	"context"
	"fmt"
	"log"
	"os"

	_ "chat_notifier/cmd/notify_server/docs" // swag init -g internal/notifyserver/router/router.go -o cmd/notify_server/docs
	"chat_notifier/internal/notifyserver/app"
	"chat_notifier/internal/notifyserver/repository"
	"chat_notifier/internal/notifyserver/router"
	"chat_notifier/pkg/config"
	"chat_notifier/pkg/database"
	"chat_notifier/pkg/encrypt"
	"chat_notifier/pkg/logger"
	t_token "chat_notifier/pkg/token"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "notify_server",
	Short: "Dev notification server: unseen list, push and notification websocket",
	RunE:  runServer,
}

var (
	flagHashPassword string
	flagMintUser     int
	flagMintName     string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagHashPassword, "hash-password", "", "print the bcrypt hash of a password for the users list and exit")
	flags.IntVar(&flagMintUser, "mint-token", 0, "print a JWT for this user id and exit")
	flags.StringVar(&flagMintName, "username", "", "username carried by --mint-token")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	logger.Log = logger.Initialize(config.EnvConfig.NotifyServer, config.EnvConfig.NotifyServerLogPath)
	defer logger.Log.Sync()

	cfg, err := config.LoadConfig[config.NotifyServer](config.EnvConfig.NotifyServer, config.EnvConfig.NotifyServerYAMLPath)
	if err != nil {
		logger.Log.Fatal("load config failed", zap.Error(err))
	}
	cfg.ApplyDefaults()
	logger.Log.SetDebugMode(cfg.Debug)
	t_token.SetSecret(cfg.JWTSecret)

	if flagHashPassword != "" {
		hash, err := encrypt.HashPassword(flagHashPassword)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	}
	if flagMintUser != 0 {
		tok, err := t_token.GenerateJWT(flagMintUser, flagMintName, app.Issuer)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	}

	// 1. 建立 unseen store 與 pub/sub
	ctx := context.Background()
	var (
		unseen repository.UnseenRepository
		bus    repository.PubSub
	)
	switch cfg.Store {
	case "redis":
		redisClient, err := database.NewRedisClient(ctx, database.Connection{
			ConnectStr:    cfg.Redis.Addr,
			RetryCount:    cfg.Redis.RetryCount,
			RetryInterval: cfg.Redis.RetryInterval,
		}, cfg.Redis.RedisDB)
		if err != nil {
			logger.Log.Fatal("Unable to connect to redis after retries", zap.String("address", cfg.Redis.Addr), zap.Error(err))
		}
		defer redisClient.Close()
		unseen = repository.NewRedisUnseenRepository(redisClient)
		bus = repository.NewRedisPubSub(redisClient)
	default:
		unseen = repository.NewMemoryUnseenRepository()
		bus = repository.NewMemoryPubSub()
	}

	// 2. 初始化 UseCase
	notifyUC := app.NewNotifyUseCase(unseen, bus, cfg.PreviewLength)

	// 3. 啟動 Fiber
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.NotifyServerLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r,
		app.NewAuthHandler(cfg.Users),
		app.NewNotifyHandler(notifyUC),
		app.NewNotificationWebsocketHandler(notifyUC, bus),
	)

	port := ":" + cfg.Port
	logger.Log.Info("Notify Server listening", zap.String("port", port), zap.String("store", cfg.Store))
	if err := r.Listen(port); err != nil {
		return fmt.Errorf("failed to start fiber: %w", err)
	}
	return nil
}
