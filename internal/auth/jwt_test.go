package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestGenerateAndParseToken(t *testing.T) {
	t.Parallel()

	identity := Identity{
		AgentID:      "a7a9a2f0-0000-0000-0000-000000000001",
		Name:         "Ana",
		Role:         "agent",
		DepartmentID: "d0000000-0000-0000-0000-000000000001",
	}
	signed, expiresAt, err := GenerateToken(identity, "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatal("token already expired")
	}

	parsed, err := ParseToken(signed, "test-secret")
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if parsed != identity {
		t.Fatalf("parsed identity = %+v, want %+v", parsed, identity)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	t.Parallel()

	signed, _, err := GenerateToken(Identity{AgentID: "x", Role: "admin"}, "secret-a", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ParseToken(signed, "secret-b"); err == nil {
		t.Fatal("expected verification failure with wrong secret")
	}
}

func TestGenerateToken_Validation(t *testing.T) {
	t.Parallel()

	if _, _, err := GenerateToken(Identity{}, "secret", time.Hour); err == nil {
		t.Fatal("expected error for missing agent id")
	}
	if _, _, err := GenerateToken(Identity{AgentID: "x"}, "", time.Hour); err == nil {
		t.Fatal("expected error for missing secret")
	}
	if _, _, err := GenerateToken(Identity{AgentID: "x"}, "secret", 0); err == nil {
		t.Fatal("expected error for non-positive expiry")
	}
}

func TestIdentityFromContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	secret := "test-secret"
	identity := Identity{
		AgentID:      "agent-123",
		Name:         "Ana",
		Role:         "manager",
		DepartmentID: "dept-1",
	}
	signed, _, err := GenerateToken(identity, secret, time.Hour)
	assert.NoError(t, err)

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	assert.NoError(t, err)
	c.Set("user", token)

	got, err := IdentityFromContext(c)
	assert.NoError(t, err)
	assert.Equal(t, identity, got)

	// Without the middleware-set token the request is unauthenticated.
	bare := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, err = IdentityFromContext(bare)
	assert.Error(t, err)
}

func TestIdentityIsSupervisor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		role string
		want bool
	}{
		{role: "admin", want: true},
		{role: "manager", want: true},
		{role: "agent", want: false},
		{role: "", want: false},
	}
	for _, tc := range cases {
		got := Identity{Role: tc.role}.IsSupervisor()
		if got != tc.want {
			t.Fatalf("role=%q IsSupervisor()=%v want=%v", tc.role, got, tc.want)
		}
	}
}
