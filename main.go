package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"academy-backend/internal/attendance"
	"academy-backend/internal/batches"
	"academy-backend/internal/dashboard"
	"academy-backend/internal/platform/auth"
	"academy-backend/internal/platform/config"
	"academy-backend/internal/platform/db"
	"academy-backend/internal/platform/logging"
	"academy-backend/internal/platform/metrics"
	"academy-backend/internal/platform/photostore"
	"academy-backend/internal/students"
)

func main() {
	defaultPath := config.DefaultPath
	if p := os.Getenv("ACADEMY_CONFIG"); p != "" {
		defaultPath = p
	}
	cfgPath := flag.String("config", defaultPath, "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	logger.Info("starting", zap.String("mode", cfg.Mode), zap.String("driver", cfg.DB.Driver))

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer conn.Close()

	if err := db.Migrate(conn, cfg.DB.Driver, logger); err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}

	if cfg.Mode == config.ModeRelease {
		gin.SetMode(gin.ReleaseMode)
	}
	r := newRouter(cfg, conn, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		var err error
		if cfg.Server.TLSEnabled() {
			logger.Info("listening", zap.String("addr", srv.Addr), zap.Bool("tls", true))
			err = srv.ListenAndServeTLS(cfg.Server.Certificate.Cert, cfg.Server.Certificate.Key)
		} else {
			logger.Info("listening", zap.String("addr", srv.Addr), zap.Bool("tls", false))
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func newRouter(cfg *config.Config, conn *sql.DB, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(logging.Middleware(logger), metrics.Middleware(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	r.Use(cors.New(corsConfig(cfg.CORS)))

	r.GET("/healthz", func(c *gin.Context) {
		if err := conn.PingContext(c.Request.Context()); err != nil {
			logging.From(c).Error("health check", zap.Error(err))
			c.String(http.StatusServiceUnavailable, "db unavailable")
			return
		}
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", metrics.Handler())
	r.Static(cfg.Uploads.PublicPath, cfg.Uploads.Dir)

	secret := []byte(cfg.Auth.JWTSecret)
	api := r.Group("/api")
	auth.RegisterRoutes(api, auth.NewService(conn, secret, cfg.Auth.TokenTTL))

	protected := api.Group("", auth.RequireAuth(secret))
	writers := auth.RequireRole(auth.RoleAdmin, auth.RoleTeacher)

	batchSvc := batches.NewService(conn)
	photos := photostore.NewFS(cfg.Uploads.Dir, strings.TrimPrefix(cfg.Uploads.PublicPath, "/"))

	dashboard.RegisterRoutes(protected, dashboard.NewService(conn))
	batches.RegisterRoutes(protected, batchSvc, writers)
	students.RegisterRoutes(protected, students.NewService(conn, photos, cfg.Uploads.MaxBytes), writers)
	attendance.RegisterRoutes(protected, attendance.NewService(conn, batchSvc), writers)

	if cfg.Server.StaticDir != "" {
		r.NoRoute(spaHandler(os.DirFS(cfg.Server.StaticDir)))
	}
	return r
}

func corsConfig(c config.CORS) cors.Config {
	cc := cors.Config{
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", logging.HeaderRequestID},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", logging.HeaderRequestID},
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
	}
	for _, o := range c.AllowOrigins {
		// a wildcard cannot be combined with credentials or explicit origins
		if o == "*" {
			cc.AllowAllOrigins = true
			return cc
		}
	}
	cc.AllowOrigins = c.AllowOrigins
	cc.AllowCredentials = true
	return cc
}
