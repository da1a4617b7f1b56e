package identity

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/client/authclient"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/authrpc"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/logger"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/sessiontoken"
)

var secret = []byte("test-secret")

func issue(t *testing.T, subject string) string {
	t.Helper()
	token, err := sessiontoken.NewIssuer(secret, "dev", time.Hour, nil).Issue(sessiontoken.Profile{
		Subject: subject, Email: subject + "@example.com", FirstName: "Jin",
	})
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestTokenExtraction(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer abc")
	if tok, fromCookie := Token(r); tok != "abc" || fromCookie {
		t.Errorf("bearer = %q, %v", tok, fromCookie)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "cookie-token"})
	if tok, fromCookie := Token(r); tok != "cookie-token" || !fromCookie {
		t.Errorf("cookie = %q, %v", tok, fromCookie)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic abc")
	if tok, _ := Token(r); tok != "" {
		t.Errorf("basic scheme should not yield a token, got %q", tok)
	}
}

func TestJWTResolver(t *testing.T) {
	resolver := NewJWTResolver(sessiontoken.NewHMACVerifier(secret, "dev", nil))

	r := httptest.NewRequest(http.MethodGet, "/quests", nil)
	r.Header.Set("Authorization", "Bearer "+issue(t, "user_1"))
	id, err := resolver.Resolve(r)
	if err != nil || id == nil {
		t.Fatalf("Resolve = %v, %v", id, err)
	}
	if id.Subject != "user_1" || id.Email != "user_1@example.com" || id.FirstName != "Jin" {
		t.Errorf("identity = %+v", id)
	}

	r = httptest.NewRequest(http.MethodGet, "/quests", nil)
	if id, err := resolver.Resolve(r); id != nil || err != nil {
		t.Errorf("no token: %v, %v", id, err)
	}

	r = httptest.NewRequest(http.MethodGet, "/quests", nil)
	r.Header.Set("Authorization", "Bearer forged")
	if id, err := resolver.Resolve(r); id != nil || err != nil {
		t.Errorf("forged token: %v, %v", id, err)
	}
}

func TestStaticResolver(t *testing.T) {
	resolver := StaticResolver{Identity: Identity{Subject: "test-user-123"}}
	id, err := resolver.Resolve(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil || id.Subject != "test-user-123" {
		t.Fatalf("Resolve = %v, %v", id, err)
	}
	id.Subject = "mutated"
	again, _ := resolver.Resolve(httptest.NewRequest(http.MethodGet, "/", nil))
	if again.Subject != "test-user-123" {
		t.Error("static identity was shared between requests")
	}
}

type fakeAuthServer struct {
	verify func(ctx context.Context, req *authrpc.VerifyRequest) (*authrpc.VerifyResponse, error)
}

func (f *fakeAuthServer) Verify(ctx context.Context, req *authrpc.VerifyRequest) (*authrpc.VerifyResponse, error) {
	return f.verify(ctx, req)
}

func newRemoteResolver(t *testing.T, srv authrpc.AuthServiceServer) *RemoteResolver {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	authrpc.RegisterAuthServiceServer(s, srv)
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	client, err := authclient.NewClient("passthrough:///bufnet", time.Second, logger.Discard(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { client.Close() })
	return NewRemoteResolver(client)
}

func TestRemoteResolver(t *testing.T) {
	resolver := newRemoteResolver(t, &fakeAuthServer{
		verify: func(ctx context.Context, req *authrpc.VerifyRequest) (*authrpc.VerifyResponse, error) {
			if req.Token != "good" {
				return nil, status.Error(codes.Unauthenticated, "invalid token")
			}
			return &authrpc.VerifyResponse{Valid: true, Subject: "user_remote", Email: "r@example.com"}, nil
		},
	})

	r := httptest.NewRequest(http.MethodGet, "/quests", nil)
	r.Header.Set("Authorization", "Bearer good")
	id, err := resolver.Resolve(r)
	if err != nil || id == nil || id.Subject != "user_remote" || id.Email != "r@example.com" {
		t.Fatalf("Resolve = %+v, %v", id, err)
	}

	r = httptest.NewRequest(http.MethodGet, "/quests", nil)
	r.Header.Set("Authorization", "Bearer bad")
	if id, err := resolver.Resolve(r); id != nil || err != nil {
		t.Errorf("bad token = %+v, %v", id, err)
	}
}

func TestRemoteResolverUnavailable(t *testing.T) {
	resolver := newRemoteResolver(t, &fakeAuthServer{
		verify: func(ctx context.Context, req *authrpc.VerifyRequest) (*authrpc.VerifyResponse, error) {
			return nil, status.Error(codes.Internal, "database down")
		},
	})

	r := httptest.NewRequest(http.MethodGet, "/quests", nil)
	r.Header.Set("Authorization", "Bearer any")
	if _, err := resolver.Resolve(r); !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithIdentity(context.Background(), &Identity{Subject: "s"})
	id, ok := FromContext(ctx)
	if !ok || id.Subject != "s" {
		t.Fatalf("FromContext = %v, %v", id, ok)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Error("empty context should have no identity")
	}
}
