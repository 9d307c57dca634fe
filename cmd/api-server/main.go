package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"anilog/internal/auth"
	"anilog/internal/catalog"
	"anilog/internal/feed"
	"anilog/internal/moderation"
	"anilog/pkg/database"
	"anilog/pkg/logger"
	"anilog/pkg/utils"
)

func main() {
	srvCfg := utils.LoadServerConfig()

	zl, err := logger.New(srvCfg.LogLevel, srvCfg.LogFormat)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer zl.Sync()

	dbCfg := database.DefaultConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		zl.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		zl.Fatal("db migrate failed", zap.Error(err))
	}

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	hub := feed.NewHub()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":       "not_ready",
				"db_error":     err.Error(),
				"feed_clients": hub.Count(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":       "ready",
			"db":           "ok",
			"feed_clients": hub.Count(),
		})
	})

	// Auth
	authCfg := utils.LoadAuthConfig()
	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	authHandler := auth.NewHandler(authRepo, tokenSvc)

	api := router.Group("/api")
	authHandler.RegisterRoutes(api.Group("/auth"))

	requireAdmin := []gin.HandlerFunc{
		auth.Middleware(tokenSvc, authRepo),
		auth.RequireAdmin(),
	}

	// Catalog: public browse, admin direct writes
	catalogRepo := catalog.NewRepo(db)
	catalogHandler := catalog.NewHandler(catalogRepo, zl)
	catalogHandler.RegisterRoutes(
		api.Group("/animations"),
		api.Group("/animations", requireAdmin...),
	)
	api.GET("/ott-providers", catalogHandler.ListProviders)

	// Moderation: open submissions (classified by optional auth),
	// admin-only queue review
	queue := moderation.NewQueue(db)
	engine := moderation.NewEngine(db, zl)
	moderationHandler := moderation.NewHandler(queue, engine, catalogRepo, hub, zl)
	moderationHandler.RegisterRoutes(
		api.Group("/requests", auth.OptionalMiddleware(tokenSvc, authRepo)),
		api.Group("/requests", requireAdmin...),
	)

	// Live queue feed for the admin dashboard
	wsChain := append(requireAdmin, feed.WSHandler(hub, zl))
	router.GET("/ws/moderation", wsChain...)

	httpSrv := &http.Server{
		Addr:    srvCfg.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("HTTP API server listening", zap.String("addr", srvCfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zl.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		zl.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zl.Error("http shutdown error", zap.Error(err))
	}
	zl.Info("server stopped")
}
