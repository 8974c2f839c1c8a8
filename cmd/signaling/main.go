package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/peerdial/signaling/config"
	"github.com/peerdial/signaling/internal/handlers"
	"github.com/peerdial/signaling/internal/middleware"
	"github.com/peerdial/signaling/internal/presence"
	"github.com/peerdial/signaling/internal/redis"
	"github.com/peerdial/signaling/internal/relay"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	cfg := config.Load()
	setupLogger(cfg)

	// Redis is optional: without it the relay still signals, it just
	// loses the room REST API and the presence mirror.
	var pres relay.Presence
	if cfg.Redis.Enabled {
		if err := redis.Connect(cfg.Redis); err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer redis.Close()
		log.Info().Msg("Redis connection established")
		pres = presence.NewStore(redis.GetClient())
	}

	hub := relay.New(pres)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handlers.OriginFilter(cfg.AllowedOrigins))

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "signaling relay ok")
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/stats", func(c *gin.Context) {
		rooms, peers := hub.Stats()
		c.JSON(http.StatusOK, gin.H{"rooms": rooms, "peers": peers})
	})

	// Room management API, only useful with a Redis backend.
	if cfg.Redis.Enabled {
		apiGroup := router.Group("/api")
		{
			apiGroup.POST("/auth/login", handlers.Login(cfg.JWTSecret))
			apiGroup.POST("/rooms", middleware.JWTAuth(cfg.JWTSecret), handlers.CreateRoom)
			apiGroup.GET("/rooms/:roomId", handlers.GetRoom(hub))
			apiGroup.DELETE("/rooms/:roomId", middleware.JWTAuth(cfg.JWTSecret), handlers.DeleteRoom)
		}
	}

	// WebSocket signaling endpoint
	router.GET("/ws", handlers.HandleSignaling(hub))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting signaling relay")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
}
