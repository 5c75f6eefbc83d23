package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/charleshuang3/invitegate/internal/config"
	"github.com/charleshuang3/invitegate/internal/gormw"
	"github.com/charleshuang3/invitegate/internal/handlers/firewall"
	"github.com/charleshuang3/invitegate/internal/handlers/invite"
	"github.com/charleshuang3/invitegate/internal/handlers/middleware"
	"github.com/charleshuang3/invitegate/internal/models"
	"github.com/charleshuang3/invitegate/internal/promotion"
	"github.com/charleshuang3/invitegate/internal/storage"
)

var (
	configPath = flag.String("c", os.Getenv("CONFIG_PATH"), "Path to configuration file")
)

func main() {
	flag.Parse()
	if *configPath == "" {
		log.Fatal().Msg("Config path must be provided via CONFIG_PATH env var or -c flag")
	}

	cfg := config.LoadConfig(*configPath)

	// cron schedule
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	scheduler.Start()

	db, err := gormw.Open(&cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	if cfg.Invite.PurgeExhaustedAfterDays > 0 {
		if err := storage.RegisterExhaustedInvitationsCleaner(scheduler, db, cfg.Invite.PurgeExhaustedAfterDays); err != nil {
			log.Fatal().Err(err).Msg("Failed to register invitations cleaner")
		}
	}

	verifier, err := middleware.NewVerifier(context.Background(), &cfg.Auth)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ID token verifier")
	}

	service := promotion.NewService(&cfg.Invite, db)

	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	fw := firewall.New(&cfg.Firewall)
	if fw != nil {
		router.Use(fw.Middleware())
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.NewAuth(verifier, db)
	api := router.Group("/api", auth.Middleware())
	admin := api.Group("/admin", middleware.RequireRole(models.RoleAdmin))

	invite.NewHandlers(service).RegisterHandlers(api, admin)
	if fw != nil {
		fw.RegisterAdminHandlers(admin.Group("/firewall"))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      router,
	}

	go func() {
		log.Info().Msgf("start server at %q", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c

	wait := time.Second * 15
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down server")
	}

	log.Info().Msg("shutting down")
	if err := scheduler.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Failed to stop scheduler")
	}
	service.Close()
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}
}
