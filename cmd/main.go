package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/openblog/microblog/internal/auth"
	"github.com/openblog/microblog/internal/config"
	"github.com/openblog/microblog/internal/consumer"
	"github.com/openblog/microblog/internal/domain"
	"github.com/openblog/microblog/internal/handler"
	"github.com/openblog/microblog/internal/middleware"
	"github.com/openblog/microblog/internal/repository"
	"github.com/openblog/microblog/internal/service"
	"github.com/openblog/microblog/internal/store"
	"github.com/openblog/microblog/pkg/database"
	"github.com/openblog/microblog/pkg/log"
	"github.com/openblog/microblog/pkg/pubsub"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}

	log.Init(cfg.Log)
	logger := log.L()

	// Connect to database using GORM
	dbConfig := &database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	db, err := database.New(dbConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Auto-migrate
	if err := database.AutoMigrate(db, &domain.UserModel{}, &domain.PostModel{}, &domain.FollowModel{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	// Optional follower-count cache
	var countStore store.CountStore
	if cfg.Redis.Enabled {
		countStore, err = store.NewRedisCountStore(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer countStore.Close()
	}

	// Optional event bus
	var bus pubsub.PubSub
	if cfg.Events.Backend != "" {
		bus, err = pubsub.New(cfg.Events)
		if err != nil {
			logger.Fatal().Err(err).Str("backend", cfg.Events.Backend).Msg("failed to create event bus")
		}
		defer bus.Close()
	}
	var publisher pubsub.Publisher
	if bus != nil {
		publisher = bus
	}

	// JWT manager
	tokens, err := auth.NewManager(cfg.Auth.AccessDuration, cfg.Auth.RefreshDuration, cfg.Auth.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token manager")
	}

	// Repositories
	userRepo := repository.NewGormUserRepository(db)
	postRepo := repository.NewGormPostRepository(db)
	followRepo := repository.NewGormFollowRepository(db)

	// Services
	graphService := service.NewSocialGraphService(followRepo, userRepo, countStore, publisher)
	userService := service.NewUserService(userRepo, postRepo, graphService, tokens, publisher)
	timelineService := service.NewTimelineService(postRepo, userRepo, publisher)

	// Auth middleware (touches last_seen on every authenticated request)
	authMiddleware := middleware.NewAuthMiddleware(tokens, userService)

	// HTTP handler
	httpHandler := handler.NewHandler(userService, graphService, timelineService, authMiddleware)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(log.GinMiddleware(logger), gin.Recovery())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Register routes
	httpHandler.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// Keep cached counts converged across instances: the conditional
	// increment only runs where the mutation happened.
	if bus != nil && countStore != nil {
		followConsumer := consumer.NewFollowEventConsumer(bus, countStore, followRepo)
		g.Go(func() error {
			if err := followConsumer.Start(gctx); err != nil {
				return err
			}
			<-followConsumer.Done()
			return nil
		})
	}

	g.Go(func() error {
		logger.Info().Str("addr", addr).Str("driver", cfg.Database.Driver).Msg("microblog starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
	logger.Info().Msg("server stopped")
}
