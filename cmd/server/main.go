package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"customer-api/internal/config"
	"customer-api/internal/domain"
	apphttp "customer-api/internal/http"
	"customer-api/internal/repository"
	"customer-api/internal/repository/mongo"
	"customer-api/internal/repository/sqlite"
	"customer-api/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Warn("JWT_SECRET is not set: token issuance and protected routes will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	docs := openRepository(ctx, cfg, logger)

	tokens := service.NewTokenService(cfg.Auth.JWTSecret)

	var resources []service.DocumentService
	for _, res := range []domain.Resource{domain.CustomersResource(), domain.UsersResource()} {
		res.Protected = cfg.IsProtected(res.Name)
		if res.Protected {
			logger.Infof("routes under /%s require a bearer token", res.Name)
		}
		resources = append(resources, service.NewDocumentService(res, docs))
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(tokens, logger, cfg.Server.CORSOrigin, resources...)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	go func() {
		logger.Infof("server is running on http://localhost%s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	if err := docs.Close(shutdownCtx); err != nil {
		logger.Warnf("close storage: %v", err)
	}

	logger.Info("bye")
}

// openRepository returns the Mongo gateway when a URI is configured and the
// SQLite gateway otherwise. A failed Mongo ping is logged and startup continues.
func openRepository(ctx context.Context, cfg config.Config, logger *logrus.Logger) repository.DocumentRepository {
	if cfg.UseMongo() {
		client, err := mongo.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			logger.Fatalf("setup mongo: %v", err)
		}
		docs := mongo.NewDocumentRepository(client, cfg.Mongo.DBName)

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := docs.Init(pingCtx); err != nil {
			logger.Errorf("failed to connect to database: %v", err)
		} else {
			logger.Infof("connected to MongoDB (database %s)", cfg.Mongo.DBName)
		}
		return docs
	}

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	docs := sqlite.NewDocumentRepository(db)
	if err := docs.Init(ctx); err != nil {
		logger.Fatalf("init document repository: %v", err)
	}
	logger.Infof("using sqlite database %s", cfg.Database.Path)
	return docs
}
