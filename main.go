package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"challenges/config"
	"challenges/database"
	"challenges/handlers"
	"challenges/mailer"
	"challenges/notify"
	"challenges/routes"
	"challenges/services"
	"challenges/uploader"
	"challenges/websocket"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogging(cfg)

	log.Info().Str("store", cfg.StoreDriver).Msg("Starting challenges backend")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close store")
		}
	}()

	if err := database.BootstrapAdmin(ctx, stores.Users, cfg.BootstrapAdminEmail, cfg.BootstrapAdminHash); err != nil {
		log.Fatal().Err(err).Msg("Failed to bootstrap admin account")
	}

	var images services.Uploader
	if cld, err := uploader.NewCloudinary(cfg.CloudinaryURL, cfg.UploadFolder); err != nil {
		log.Warn().Err(err).Msg("Image uploads disabled")
	} else {
		images = cld
	}

	var notifier services.Notifier
	smtp, err := mailer.NewSMTP(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.MailFrom,
		Password: cfg.MailPassword,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Subscriber emails disabled")
	} else {
		notifier = notify.NewDispatcher(smtp, notify.Options{
			Workers:      cfg.MailWorkers,
			SendTimeout:  cfg.MailSendTimeout,
			RoundTimeout: cfg.MailRoundTimeout,
			SiteURL:      cfg.SiteURL,
		})
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := websocket.NewManager()
	go hub.Start(hubCtx)

	postService := services.NewPostService(stores.Posts, stores.Subscribers, images, notifier, cfg.UploadTimeout)
	reactionService := services.NewReactionService(stores.Posts, hub)

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.SetupRouter(routes.Dependencies{
		Config:    cfg,
		Posts:     handlers.NewPostHandler(postService),
		Reactions: handlers.NewReactionHandler(reactionService),
		Auth:      handlers.NewAuthHandler(stores.Users, cfg.JWTSecret, cfg.IsAdmin),
		Hub:       hub,
	})

	// Post creation blocks on the upload, the subscriber lookup and the
	// mail round, each with its own deadline.
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.UploadTimeout + services.SubscriberLookupTimeout + cfg.MailRoundTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown")
	}
	stopHub()

	log.Info().Msg("Server stopped")
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.GinMode != gin.ReleaseMode {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
