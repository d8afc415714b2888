package ginserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	domainbooking "stayengine/internal/domain/booking"
)

const principalContextKey = "stayengine.principal"

var ErrInvalidToken = errors.New("auth: invalid token")

// Claims are issued by the identity provider; the subject is an opaque user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type principal struct {
	ID   string
	Role domainbooking.Role
}

func (p principal) Actor() domainbooking.Actor {
	return domainbooking.Actor{ID: p.ID, Role: p.Role}
}

// Authenticator verifies HS256 bearer tokens. Requests without a valid token
// continue anonymously; handlers decide whether identity is required.
type Authenticator struct {
	Secret []byte
	Logger *slog.Logger
}

func (a Authenticator) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || len(a.Secret) == 0 {
		c.Next()
		return
	}
	p, err := a.Verify(token)
	if err != nil {
		if a.Logger != nil {
			a.Logger.DebugContext(c.Request.Context(), "token validation failed", "error", err)
		}
		c.Next()
		return
	}
	c.Set(principalContextKey, p)
	c.Next()
}

func (a Authenticator) Verify(token string) (principal, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return principal{}, ErrInvalidToken
	}
	role := domainbooking.Role(strings.ToLower(strings.TrimSpace(claims.Role)))
	switch role {
	case domainbooking.RoleGuest, domainbooking.RoleHost, domainbooking.RoleSystem:
	case "":
		role = domainbooking.RoleGuest
	default:
		return principal{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return principal{ID: claims.Subject, Role: role}, nil
}

// Issue signs a token for subject; used by tests and local tooling.
func (a Authenticator) Issue(subject string, role domainbooking.Role, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

// requireRole aborts with 401 or 403; an empty role accepts any principal.
func requireRole(c *gin.Context, role domainbooking.Role) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		abortError(c, http.StatusUnauthorized, "unauthorized", "authentication required")
		return principal{}, false
	}
	if role != "" && p.Role != role {
		abortError(c, http.StatusForbidden, "forbidden", "insufficient permissions")
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
