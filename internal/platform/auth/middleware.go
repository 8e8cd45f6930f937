// Package auth resolves the signed-in console user from a bearer token and
// guards routes by role.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Console roles.
const (
	RoleAdmin        = "admin"
	RoleClinicAdmin  = "clinic_admin"
	RoleManager      = "manager"
	RoleDoctor       = "doctor"
	RoleNurse        = "nurse"
	RoleReceptionist = "receptionist"
	RolePatient      = "patient"
)

// rolePriority orders roles when a user holds several; the first match
// becomes the user's primary role.
var rolePriority = []string{
	RoleAdmin, RoleClinicAdmin, RoleManager, RoleDoctor, RoleNurse, RoleReceptionist, RolePatient,
}

type contextKey string

const userKey contextKey = "console_user"

type Claims struct {
	jwt.RegisteredClaims
	Name     string   `json:"name"`
	ClinicID string   `json:"clinic_id"`
	Roles    []string `json:"roles"`
}

// CurrentUser is the read-only identity of the caller.
type CurrentUser struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Role     string   `json:"role"`
	Roles    []string `json:"roles"`
	ClinicID string   `json:"clinic_id,omitempty"`
}

// HasRole reports whether the user holds role. Admins hold every role.
func (u CurrentUser) HasRole(role string) bool {
	return slices.Contains(u.Roles, role) || slices.Contains(u.Roles, RoleAdmin)
}

// UserFromClaims builds the user carried by a validated token.
func UserFromClaims(c *Claims) CurrentUser {
	return CurrentUser{
		ID:       c.Subject,
		Name:     c.Name,
		Role:     PrimaryRole(c.Roles),
		Roles:    c.Roles,
		ClinicID: c.ClinicID,
	}
}

// PrimaryRole picks the highest-priority known role, or the first role when
// none is known.
func PrimaryRole(roles []string) string {
	for _, r := range rolePriority {
		if slices.Contains(roles, r) {
			return r
		}
	}
	if len(roles) > 0 {
		return roles[0]
	}
	return ""
}

func WithUser(ctx context.Context, u CurrentUser) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func UserFromContext(ctx context.Context) (CurrentUser, bool) {
	u, ok := ctx.Value(userKey).(CurrentUser)
	return u, ok
}

func UserIDFromContext(ctx context.Context) string {
	u, _ := UserFromContext(ctx)
	return u.ID
}

func RolesFromContext(ctx context.Context) []string {
	u, _ := UserFromContext(ctx)
	return u.Roles
}

// TokenQueryParam carries the bearer token when no Authorization header can
// be sent.
const TokenQueryParam = "access_token"

type JWTConfig struct {
	Issuer     string
	Audience   string
	SigningKey []byte
	Skipper    func(c echo.Context) bool
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	keyFunc := func(*jwt.Token) (interface{}, error) { return cfg.SigningKey, nil }

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}
			authHeader := c.Request().Header.Get("Authorization")
			tokenStr := ""
			switch {
			case authHeader != "":
				scheme, tok, ok := strings.Cut(authHeader, " ")
				if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(tok) == "" {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
				}
				tokenStr = tok
			case c.QueryParam(TokenQueryParam) != "":
				// Browsers cannot set headers on a WebSocket handshake.
				tokenStr = c.QueryParam(TokenQueryParam)
			default:
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, keyFunc, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if claims.Subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has no subject")
			}

			c.SetRequest(c.Request().WithContext(WithUser(c.Request().Context(), UserFromClaims(claims))))
			return next(c)
		}
	}
}

// IssueToken signs a token for user. Used by the dev token command and tests.
func IssueToken(cfg JWTConfig, u CurrentUser, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:     u.Name,
		ClinicID: u.ClinicID,
		Roles:    u.Roles,
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// DevAuthMiddleware is a permissive middleware for development. Requests
// without a token run as a clinic admin; X-Dev-Role and X-Dev-Clinic
// override the role and clinic.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header
			role := h.Get("X-Dev-Role")
			if role == "" {
				role = RoleClinicAdmin
			}
			clinic := h.Get("X-Dev-Clinic")
			if clinic == "" {
				clinic = "dev-clinic"
			}
			u := CurrentUser{
				ID:       "dev-user",
				Name:     "Dev User",
				Role:     role,
				Roles:    []string{role},
				ClinicID: clinic,
			}
			c.SetRequest(c.Request().WithContext(WithUser(c.Request().Context(), u)))
			return next(c)
		}
	}
}

// RequireUser rejects requests that reached a handler without an identity.
func RequireUser(c echo.Context) (CurrentUser, error) {
	u, ok := UserFromContext(c.Request().Context())
	if !ok || u.ID == "" {
		return CurrentUser{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return u, nil
}
