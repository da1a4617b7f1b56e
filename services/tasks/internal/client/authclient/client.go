package authclient

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/KhasarMunkh/SoloLeveler-public/shared/authrpc"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/middleware"
)

// Subject - проверенный владелец токена
type Subject struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
}

type Client struct {
	conn    *grpc.ClientConn
	client  authrpc.AuthServiceClient
	timeout time.Duration
	logger  *logrus.Logger
}

// NewClient создаёт клиент auth-сервиса. Соединение устанавливается лениво
// при первом вызове.
func NewClient(addr string, timeout time.Duration, logger *logrus.Logger, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to auth service: %w", err)
	}

	return &Client{
		conn:    conn,
		client:  authrpc.NewAuthServiceClient(conn),
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// VerifyToken возвращает владельца токена; nil, nil - токен невалиден
func (c *Client) VerifyToken(ctx context.Context, token string) (*Subject, error) {
	requestID := middleware.GetRequestID(ctx)

	logEntry := c.logger.WithFields(logrus.Fields{
		"component":  "auth_client",
		"request_id": requestID,
	})

	logEntry.Debug("calling auth service Verify")

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// прокидываем request-id в метаданные gRPC
	if requestID != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-request-id", requestID)
	}

	resp, err := c.client.Verify(ctx, &authrpc.VerifyRequest{Token: token})
	if err != nil {
		st, ok := status.FromError(err)
		if !ok {
			logEntry.WithError(err).Error("auth service unavailable")
			return nil, fmt.Errorf("auth service unavailable: %w", err)
		}

		switch st.Code() {
		case codes.Unauthenticated:
			logEntry.WithField("token_present", token != "").Debug("token invalid")
			return nil, nil
		case codes.DeadlineExceeded:
			logEntry.Warn("auth service timeout")
			return nil, fmt.Errorf("auth service timeout")
		default:
			logEntry.WithFields(logrus.Fields{
				"code":  st.Code(),
				"error": st.Message(),
			}).Error("auth service error")
			return nil, fmt.Errorf("auth service error: %v", st.Message())
		}
	}

	logEntry.WithFields(logrus.Fields{
		"valid":   resp.Valid,
		"subject": resp.Subject,
	}).Debug("auth response received")

	if !resp.Valid || resp.Subject == "" {
		return nil, nil
	}
	return &Subject{
		ID:        resp.Subject,
		Email:     resp.Email,
		FirstName: resp.FirstName,
		LastName:  resp.LastName,
	}, nil
}
