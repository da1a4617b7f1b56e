package grpc

import (
	"context"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/KhasarMunkh/SoloLeveler-public/services/auth/internal/service"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/authrpc"
)

type Server struct {
	Service *service.AuthService
	Logger  *logrus.Logger
}

func (s *Server) Verify(ctx context.Context, req *authrpc.VerifyRequest) (*authrpc.VerifyResponse, error) {
	// request-id приходит во входящих метаданных
	var requestID string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get("x-request-id"); len(values) > 0 {
			requestID = values[0]
		}
	}

	logEntry := s.Logger.WithFields(logrus.Fields{
		"component":     "grpc_server",
		"request_id":    requestID,
		"token_present": req.Token != "",
	})

	profile, ok := s.Service.VerifyToken(req.Token)
	if !ok {
		logEntry.Warn("invalid token attempt")
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	logEntry.WithField("subject", profile.Subject).Info("token verified successfully")

	return &authrpc.VerifyResponse{
		Valid:     true,
		Subject:   profile.Subject,
		Email:     profile.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
	}, nil
}
