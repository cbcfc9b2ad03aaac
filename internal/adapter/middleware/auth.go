package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"ncd-admin-backend/internal/domain/audit"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const adminCtxKey = "ncd.admin"

// Claims carried by admin access tokens. Token issuance lives with the
// identity provider; this service only verifies.
type Claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Admin is the authenticated caller.
type Admin struct {
	Subject string
	Name    string
	Role    string
}

func (a Admin) Actor() audit.Actor { return audit.Actor{Name: a.Name, Role: a.Role} }

func SetAdmin(c echo.Context, a Admin) { c.Set(adminCtxKey, a) }

func AdminFrom(c echo.Context) (Admin, bool) {
	a, ok := c.Get(adminCtxKey).(Admin)
	return a, ok
}

// JWTAuth validates HS256 bearer tokens and stores the Admin on the context.
func JWTAuth(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}

			claims, err := parseToken(secret, strings.TrimSpace(parts[1]))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
			}
			if claims.Name == "" || claims.Role == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "token missing name or role"})
			}

			subject := claims.Subject
			if subject == "" {
				subject = claims.Name
			}
			SetAdmin(c, Admin{Subject: subject, Name: claims.Name, Role: claims.Role})
			return next(c)
		}
	}
}

func parseToken(secret []byte, raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// SignToken issues a token for the given admin. Used by tests and local
// tooling.
func SignToken(secret []byte, subject, name, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
