package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grp "github.com/KhasarMunkh/SoloLeveler-public/services/auth/internal/grpc"
	httpHandler "github.com/KhasarMunkh/SoloLeveler-public/services/auth/internal/http"
	"github.com/KhasarMunkh/SoloLeveler-public/services/auth/internal/service"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/authrpc"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/logger"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/middleware"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/sessiontoken"
)

func main() {
	_ = godotenv.Load()
	logrusLogger := logger.Init("auth")

	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		logrusLogger.Fatal("AUTH_JWT_SECRET is not set")
	}
	issuerName := getEnv("AUTH_JWT_ISSUER", "sololeveler-dev")
	ttl, err := time.ParseDuration(getEnv("AUTH_TOKEN_TTL", "24h"))
	if err != nil {
		logrusLogger.WithError(err).Fatal("invalid AUTH_TOKEN_TTL")
	}
	issueEnabled, _ := strconv.ParseBool(getEnv("AUTH_ISSUE_ENABLED", "false"))

	authService := service.NewAuthService(
		sessiontoken.NewIssuer([]byte(secret), issuerName, ttl, nil),
		sessiontoken.NewHMACVerifier([]byte(secret), issuerName, nil),
		issueEnabled,
	)

	// HTTP сервер для выдачи токенов
	httpPort := getEnv("AUTH_HTTP_PORT", "8081")
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/token", httpHandler.NewTokenHandler(authService, logrusLogger, int(ttl.Seconds())).IssueToken)

	handler := middleware.LoggingMiddleware(logrusLogger, mux)
	handler = middleware.RequestIDMiddleware(handler)

	httpServer := &http.Server{
		Addr:              ":" + httpPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logrusLogger.WithFields(logrus.Fields{"port": httpPort, "issue_enabled": issueEnabled}).Info("Auth HTTP server starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrusLogger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// gRPC сервер для Verify
	grpcPort := getEnv("AUTH_GRPC_PORT", "50051")
	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		logrusLogger.WithError(err).Fatal("failed to listen")
	}

	s := grpc.NewServer()
	authrpc.RegisterAuthServiceServer(s, &grp.Server{Service: authService, Logger: logrusLogger})
	reflection.Register(s)

	go func() {
		logrusLogger.WithField("port", grpcPort).Info("Auth gRPC server starting")
		if err := s.Serve(lis); err != nil {
			logrusLogger.WithError(err).Fatal("failed to serve")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrusLogger.Info("Shutting down Auth server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
	s.GracefulStop()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
