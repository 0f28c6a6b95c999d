package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/tidechat/tide-api/internal/cache"
	"github.com/tidechat/tide-api/internal/config"
	"github.com/tidechat/tide-api/internal/database"
	"github.com/tidechat/tide-api/internal/events"
	"github.com/tidechat/tide-api/internal/handler"
	"github.com/tidechat/tide-api/internal/middleware"
	"github.com/tidechat/tide-api/internal/repository"
	"github.com/tidechat/tide-api/internal/router"
	"github.com/tidechat/tide-api/internal/service"
	"github.com/tidechat/tide-api/pkg/mediaprobe"
	"github.com/tidechat/tide-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	bucket, err := storage.NewS3Bucket(context.Background(), storage.Config{
		Region:   cfg.S3Region,
		Bucket:   cfg.S3Bucket,
		Endpoint: cfg.S3Endpoint,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create storage client: %v", err)
	}

	prober := mediaprobe.New(cfg.FFmpegPath, cfg.FFprobePath)
	validate := validator.New(validator.WithRequiredStructEnabled())

	store := repository.NewStore(db)
	publisher := events.NewPublisher(natsConn, redisClient, "tide", logger)
	summaries := cache.NewSummaryCache(redisClient, "tide:chat:summary", cfg.SummaryCacheTTL, logger)

	mediaService := service.NewMediaService(bucket, prober, cfg.MaxFileSizeMB, logger)
	channelService := service.NewChannelService(store, publisher, validate, cfg.TypingResetInterval, logger)
	directService := service.NewDirectService(store, publisher, validate, cfg.TypingResetInterval, logger)
	messageService := service.NewMessageService(store, mediaService, bucket, publisher, summaries, validate, cfg.MessageThumbWidth, logger)
	workspaceService := service.NewWorkspaceService(store, mediaService, publisher, validate, cfg.AvatarThumbWidth, logger)
	userService := service.NewUserService(store, mediaService, publisher, validate, cfg.AvatarThumbWidth, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		WorkspaceHandler: handler.NewWorkspaceHandler(workspaceService, logger),
		ChannelHandler:   handler.NewChannelHandler(channelService, logger),
		DirectHandler:    handler.NewDirectHandler(directService, logger),
		MessageHandler:   handler.NewMessageHandler(messageService, logger),
		UserHandler:      handler.NewUserHandler(userService, logger),
		JWTMiddleware:    middleware.JWTProtected(cfg.JWTSecret),
		VersionGate:      middleware.ClientVersionGate(store.Versions, cfg.DatabaseVersion, cfg.ClientCompatibility, logger),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
