package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	claimSubject      = "sub"
	claimAgentID      = "agent_id"
	claimRole         = "role"
	claimDepartmentID = "department_id"
	claimName         = "name"
)

// Identity is the authenticated agent extracted from a request token.
type Identity struct {
	AgentID      string
	Name         string
	Role         string
	DepartmentID string
}

// IsSupervisor reports whether the identity may see conversations across
// all departments.
func (i Identity) IsSupervisor() bool {
	return i.Role == "admin" || i.Role == "manager"
}

// JWTMiddleware returns a JWT auth middleware configured for HS256 tokens.
// The token is read from the Authorization header or a `token` query
// parameter (the latter is used by the websocket upgrade).
func JWTMiddleware(secret string, skipper middleware.Skipper) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(secret),
		SigningMethod: "HS256",
		TokenLookup:   "header:Authorization:Bearer ,query:token",
		Skipper:       skipper,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return jwt.MapClaims{}
		},
	})
}

// IdentityFromContext extracts the agent identity from JWT claims.
func IdentityFromContext(c echo.Context) (Identity, error) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok || token == nil || !token.Valid {
		return Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}
	identity := Identity{
		AgentID:      claimString(claims, claimAgentID),
		Name:         claimString(claims, claimName),
		Role:         claimString(claims, claimRole),
		DepartmentID: claimString(claims, claimDepartmentID),
	}
	if identity.AgentID == "" {
		identity.AgentID = claimString(claims, claimSubject)
	}
	if identity.AgentID == "" {
		return Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "agent id missing")
	}
	return identity, nil
}

// GenerateToken creates a signed JWT for the agent.
func GenerateToken(identity Identity, secret string, expiresIn time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(identity.AgentID) == "" {
		return "", time.Time{}, fmt.Errorf("agent id is required")
	}
	if strings.TrimSpace(secret) == "" {
		return "", time.Time{}, fmt.Errorf("jwt secret is required")
	}
	if expiresIn <= 0 {
		return "", time.Time{}, fmt.Errorf("jwt expires in must be positive")
	}

	now := time.Now().UTC()
	expiresAt := now.Add(expiresIn)
	claims := jwt.MapClaims{
		claimSubject:      identity.AgentID,
		claimAgentID:      identity.AgentID,
		claimName:         identity.Name,
		claimRole:         identity.Role,
		claimDepartmentID: identity.DepartmentID,
		"iat":             now.Unix(),
		"exp":             expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken validates a raw token string and returns the embedded identity.
// Used by the websocket endpoint, which authenticates outside the echo
// middleware chain.
func ParseToken(raw, secret string) (Identity, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return Identity{}, fmt.Errorf("token is required")
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Identity{}, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("invalid token claims")
	}
	identity := Identity{
		AgentID:      claimString(claims, claimAgentID),
		Name:         claimString(claims, claimName),
		Role:         claimString(claims, claimRole),
		DepartmentID: claimString(claims, claimDepartmentID),
	}
	if identity.AgentID == "" {
		identity.AgentID = claimString(claims, claimSubject)
	}
	if identity.AgentID == "" {
		return Identity{}, fmt.Errorf("agent id missing")
	}
	return identity, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	raw, ok := claims[key]
	if !ok || raw == nil {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(raw)
	}
}
