package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIssueAndParse(t *testing.T) {
	auth := NewAuthenticator("secret", "hushmap")

	token, err := auth.Issue("user-1", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	userID, err := auth.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("Parse() = %q, want user-1", userID)
	}
}

func TestParseRejects(t *testing.T) {
	auth := NewAuthenticator("secret", "hushmap")

	expired, _ := auth.Issue("u", -time.Minute)
	otherKey, _ := NewAuthenticator("other", "hushmap").Issue("u", time.Hour)
	otherIssuer, _ := NewAuthenticator("secret", "someone-else").Issue("u", time.Hour)
	noSubject, _ := auth.Issue("", time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "expired", token: expired},
		{name: "wrong key", token: otherKey},
		{name: "wrong issuer", token: otherIssuer},
		{name: "no subject", token: noSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := auth.Parse(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	auth := NewAuthenticator("secret", "hushmap")
	valid, _ := auth.Issue("user-7", time.Hour)

	r := gin.New()
	r.Use(auth.Middleware())
	r.GET("/whoami", func(c *gin.Context) {
		id, ok := ContextProvider{}.CurrentUserID(c.Request.Context())
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, id)
	})
	r.GET("/private", RequireUser(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		path     string
		header   string
		wantCode int
		wantBody string
	}{
		{name: "anonymous", path: "/whoami", wantCode: http.StatusOK, wantBody: "anonymous"},
		{name: "valid token", path: "/whoami", header: "Bearer " + valid, wantCode: http.StatusOK, wantBody: "user-7"},
		{name: "lowercase scheme", path: "/whoami", header: "bearer " + valid, wantCode: http.StatusOK, wantBody: "user-7"},
		{name: "bad scheme", path: "/whoami", header: "Basic abc", wantCode: http.StatusUnauthorized},
		{name: "bad token", path: "/whoami", header: "Bearer abc", wantCode: http.StatusUnauthorized},
		{name: "private anonymous", path: "/private", wantCode: http.StatusUnauthorized},
		{name: "private authenticated", path: "/private", header: "Bearer " + valid, wantCode: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestFromContextEmpty(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("empty context should carry no user")
	}
	if _, ok := FromContext(WithUserID(context.Background(), "")); ok {
		t.Error("empty user id should not count as authenticated")
	}
}

func TestRequire(t *testing.T) {
	if _, err := Require(context.Background()); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Require(empty) = %v, want ErrUnauthenticated", err)
	}
	id, err := Require(WithUserID(context.Background(), "u1"))
	if err != nil || id != "u1" {
		t.Errorf("Require() = %q, %v", id, err)
	}
}
