package httpkit

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type staticJWTConfig struct {
	secret string
}

func (c staticJWTConfig) GetJWTAccessSecret() string { return c.secret }

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func authTestEngine(cfg staticJWTConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/who", AuthRequired(cfg), func(c *gin.Context) {
		id := MustGetIdentity(c)
		if id == nil {
			return
		}
		c.String(http.StatusOK, strconv.FormatInt(id.UserID(), 10))
	})
	return engine
}

func TestAuthRequiredAcceptsStringAndNumericSubjects(t *testing.T) {
	cfg := staticJWTConfig{secret: "test-secret"}
	engine := authTestEngine(cfg)

	exp := time.Now().Add(time.Hour).Unix()
	cases := []struct {
		name string
		sub  any
	}{
		{"string subject", "42"},
		{"numeric subject", float64(42)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token := signToken(t, cfg.secret, jwt.MapClaims{"sub": tc.sub, "exp": exp})

			req := httptest.NewRequest(http.MethodGet, "/who", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
			}
			if rec.Body.String() != "42" {
				t.Errorf("user id = %q, want 42", rec.Body.String())
			}
		})
	}
}

func TestAuthRequiredRejectsBadTokens(t *testing.T) {
	cfg := staticJWTConfig{secret: "test-secret"}
	engine := authTestEngine(cfg)

	expired := signToken(t, cfg.secret, jwt.MapClaims{
		"sub": "42",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongKey := signToken(t, "other-secret", jwt.MapClaims{
		"sub": "42",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	noSubject := signToken(t, cfg.secret, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"empty bearer", "Bearer "},
		{"expired", "Bearer " + expired},
		{"wrong key", "Bearer " + wrongKey},
		{"no subject", "Bearer " + noSubject},
		{"garbage", "Bearer not.a.token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/who", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestGetIdentityWithoutAuthIsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	id := GetIdentity(c)
	if id.IsAuthenticated() {
		t.Error("identity without auth context must not be authenticated")
	}
	if id.UserID() != 0 {
		t.Errorf("anonymous user id = %d, want 0", id.UserID())
	}
}
