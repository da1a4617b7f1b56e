package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/client/authclient"
	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/config"
	handlers "github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/http"
	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/identity"
	customMiddleware "github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/middleware"
	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/repository"
	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/service"
	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/summarizer"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/logger"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/middleware"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/sessiontoken"
)

func main() {
	logrusLogger := logger.Init("tasks")

	cfg, err := config.Load()
	if err != nil {
		logrusLogger.WithError(err).Fatal("failed to load config")
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrusLogger.SetLevel(lvl)
	}

	// Хранилище открывается лениво при первом запросе
	connector := repository.NewConnector(openStore(cfg.DB))

	resolver, closeResolver, err := newResolver(cfg, logrusLogger)
	if err != nil {
		logrusLogger.WithError(err).Fatal("failed to init identity resolver")
	}
	defer closeResolver()

	var sum service.Summarizer
	switch cfg.Summarizer.Kind {
	case config.SummarizerLocal:
		sum = summarizer.NewLocal(cfg.Location)
	default:
		if cfg.Summarizer.APIKey == "" {
			logrusLogger.Warn("OPENAI_API_KEY is not set, summaries will fail")
		}
		sum = summarizer.NewOpenAI(cfg.Summarizer.APIKey, cfg.Summarizer.BaseURL, cfg.Summarizer.Model,
			cfg.Summarizer.Timeout, cfg.Location, logrusLogger)
	}

	// Инициализация сервисов
	taskService := service.NewTaskService(connector.Tasks(), service.Guard{HideForeign: cfg.HideForeignTasks}, cfg.Location)
	summaryService := service.NewSummaryService(connector.Tasks(), sum, cfg.Location, nil)
	users := service.NewUserRegistry(connector.Users(), logrusLogger)

	taskHandler := handlers.NewTaskHandler(taskService, summaryService, users, logrusLogger)

	// Настройка роутера
	mux := http.NewServeMux()
	taskHandler.Register(mux, func(next http.Handler) http.Handler {
		return customMiddleware.CSRFMiddleware(customMiddleware.AuthMiddleware(resolver, logrusLogger, next))
	})
	mux.Handle("GET /metrics", customMiddleware.MetricsHandler())

	// Цепочка middleware, снаружи внутрь: request-id, логирование, метрики, CORS, заголовки
	handler := customMiddleware.SecurityHeadersMiddleware(mux)
	handler = customMiddleware.CORSMiddleware(cfg.FrontendURL, handler)
	handler = customMiddleware.MetricsMiddleware(handler)
	handler = middleware.LoggingMiddleware(logrusLogger, handler)
	handler = middleware.RequestIDMiddleware(handler)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.TasksPort),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logrusLogger.WithFields(logrus.Fields{
			"port":      cfg.TasksPort,
			"db_driver": cfg.DB.Driver,
			"auth_mode": cfg.Auth.Mode,
		}).Info("tasks service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrusLogger.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrusLogger.Info("shutting down tasks service...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrusLogger.WithError(err).Error("graceful shutdown failed")
	}
	if err := connector.Close(ctx); err != nil {
		logrusLogger.WithError(err).Error("failed to close store")
	}
}

func openStore(db config.DatabaseConfig) repository.OpenFunc {
	return func(ctx context.Context) (repository.Store, error) {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		switch db.Driver {
		case config.DriverPostgres:
			return repository.NewPostgresStore(ctx, db.PostgresDSN())
		case config.DriverSQLite:
			return repository.NewSQLiteStore(ctx, db.SQLitePath)
		default:
			return repository.NewMongoStore(ctx, db.MongoURI, db.MongoDB)
		}
	}
}

func newResolver(cfg *config.Config, log *logrus.Logger) (identity.Resolver, func(), error) {
	noop := func() {}
	switch cfg.Auth.Mode {
	case config.AuthSkip:
		log.WithField("subject", cfg.Auth.DevSubject).Warn("authentication disabled, all requests use the dev user")
		return identity.StaticResolver{Identity: identity.Identity{Subject: cfg.Auth.DevSubject}}, noop, nil
	case config.AuthGRPC:
		client, err := authclient.NewClient(cfg.Auth.GRPCAddr, cfg.Auth.Timeout, log)
		if err != nil {
			return nil, noop, err
		}
		return identity.NewRemoteResolver(client), func() { client.Close() }, nil
	default:
		if cfg.Auth.JWTPublicKey != "" {
			v, err := sessiontoken.NewRSAVerifier([]byte(cfg.Auth.JWTPublicKey), cfg.Auth.JWTIssuer, nil)
			if err != nil {
				return nil, noop, err
			}
			return identity.NewJWTResolver(v), noop, nil
		}
		v := sessiontoken.NewHMACVerifier([]byte(cfg.Auth.JWTSecret), cfg.Auth.JWTIssuer, nil)
		return identity.NewJWTResolver(v), noop, nil
	}
}
