// Package middleware provides the request processing chain shared by all
// protected routes: JWT verification, role enforcement, rate limiting and
// response caching.
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-admin/internal/auth"
)

// identityKey is the echo context key under which the authenticated
// identity is stored.
const identityKey = "identity"

// JWTAuth validates a Bearer access token and injects a typed auth.Identity
// into the request context. Handlers retrieve it with CurrentIdentity and
// pass it explicitly into every repository call; no code below the
// middleware consults the raw token again.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			id, ok := subjectID(claims["sub"])
			role, _ := claims["role"].(string)
			if !ok || !auth.ValidRole(role) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			SetIdentity(c, auth.Identity{ID: id, Role: role})
			return next(c)
		}
	}
}

// subjectID converts the JWT sub claim into a user id. Numeric claims
// decode as float64; some clients send them as strings.
func subjectID(v interface{}) (uint64, bool) {
	switch s := v.(type) {
	case float64:
		if s < 0 {
			return 0, false
		}
		return uint64(s), true
	case string:
		n, err := strconv.ParseUint(s, 10, 64)
		return n, err == nil
	}
	return 0, false
}

// SetIdentity stores the identity on the context. Called by JWTAuth; also
// used by handler tests that build contexts directly.
func SetIdentity(c echo.Context, id auth.Identity) { c.Set(identityKey, id) }

// CurrentIdentity returns the identity stored by JWTAuth. The boolean is
// false when the middleware did not run for this route.
func CurrentIdentity(c echo.Context) (auth.Identity, bool) {
	id, ok := c.Get(identityKey).(auth.Identity)
	return id, ok
}
