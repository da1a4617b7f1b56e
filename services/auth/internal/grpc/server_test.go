package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/KhasarMunkh/SoloLeveler-public/services/auth/internal/service"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/authrpc"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/logger"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/sessiontoken"
)

func startServer(t *testing.T, svc *service.AuthService) authrpc.AuthServiceClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	authrpc.RegisterAuthServiceServer(s, &Server{Service: svc, Logger: logger.Discard()})
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return authrpc.NewAuthServiceClient(conn)
}

func TestVerify(t *testing.T) {
	secret := []byte("secret")
	svc := service.NewAuthService(
		sessiontoken.NewIssuer(secret, "dev", time.Hour, nil),
		sessiontoken.NewHMACVerifier(secret, "dev", nil),
		true,
	)
	client := startServer(t, svc)

	token, err := svc.IssueToken(sessiontoken.Profile{Subject: "user_1", Email: "one@example.com"})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Verify(ctx, &authrpc.VerifyRequest{Token: token})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !resp.Valid || resp.Subject != "user_1" || resp.Email != "one@example.com" {
		t.Errorf("unexpected response: %+v", resp)
	}

	_, err = client.Verify(ctx, &authrpc.VerifyRequest{Token: "bogus"})
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("Verify(bogus) code = %v, want Unauthenticated", status.Code(err))
	}
}
