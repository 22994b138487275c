package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/orderhub/internal/domain/errors"
	"github.com/polkiloo/orderhub/internal/domain/model"
	testhelpers "github.com/polkiloo/orderhub/internal/test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type authenticatorFunc func(ctx context.Context, token string) (*model.Principal, error)

func (f authenticatorFunc) Authenticate(ctx context.Context, token string) (*model.Principal, error) {
	return f(ctx, token)
}

func serveWithAuth(auth Authenticator, header string) (*httptest.ResponseRecorder, string) {
	var storedID string
	router := gin.New()
	router.Use(AuthRequired(auth))
	router.GET("/", func(c *gin.Context) {
		storedID = c.GetString(UserIDContextKey)
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp, storedID
}

func TestAuthRequired(t *testing.T) {
	identity := testhelpers.IdentityStub{Principals: map[string]model.Principal{"good": {UserID: "usr-42"}}}

	resp, _ := serveWithAuth(identity, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.Code)
	}

	resp, _ = serveWithAuth(identity, "Bearer unknown")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", resp.Code)
	}

	blocked := authenticatorFunc(func(context.Context, string) (*model.Principal, error) {
		return nil, domainErrors.ErrUserBlocked
	})
	resp, _ = serveWithAuth(blocked, "Bearer good")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for blocked user, got %d", resp.Code)
	}

	broken := authenticatorFunc(func(context.Context, string) (*model.Principal, error) {
		return nil, context.DeadlineExceeded
	})
	resp, _ = serveWithAuth(broken, "Bearer good")
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}

	resp, storedID := serveWithAuth(identity, "bearer good")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if storedID != "usr-42" {
		t.Fatalf("expected user id usr-42, got %q", storedID)
	}
}

func TestExtractToken(t *testing.T) {
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)
	if token := extractToken(c); token != "" {
		t.Fatalf("expected empty token, got %q", token)
	}
	c.Request.Header.Set("Authorization", "Bearer abc")
	if token := extractToken(c); token != "abc" {
		t.Fatalf("expected token from header, got %q", token)
	}
	c.Request.Header.Set("Authorization", "Basic abc")
	if token := extractToken(c); token != "" {
		t.Fatalf("expected basic credentials to be ignored, got %q", token)
	}
}

func TestRequestLogger(t *testing.T) {
	var out strings.Builder
	logger := slog.New(slog.NewJSONHandler(&out, nil))

	router := gin.New()
	router.Use(RequestLogger(logger))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(io.ErrUnexpectedEOF)
		c.Status(http.StatusInternalServerError)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	if !strings.Contains(out.String(), `"level":"INFO"`) || !strings.Contains(out.String(), `"path":"/ok"`) {
		t.Fatalf("expected info request log, got %s", out.String())
	}

	out.Reset()
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))
	if !strings.Contains(out.String(), `"level":"ERROR"`) || !strings.Contains(out.String(), "unexpected EOF") {
		t.Fatalf("expected error request log, got %s", out.String())
	}
}
