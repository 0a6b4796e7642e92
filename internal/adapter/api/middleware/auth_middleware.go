package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"installerhub/internal/domain/entity"
	"installerhub/pkg/errors"
	"installerhub/pkg/response"
)

const viewerKey = "viewer"

// TokenVerifier turns a bearer token into the viewer it identifies.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (entity.Participant, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

// Authenticate verifies the bearer token and stores the viewer on the
// context. Browsers cannot set headers on a websocket upgrade, so a token
// query parameter is accepted as well.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := ""
		if authHeader := c.Request().Header.Get("Authorization"); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return response.Error(c, errors.Unauthorized("Invalid authorization format", nil))
			}
			raw = parts[1]
		} else {
			raw = c.QueryParam("token")
		}
		if raw == "" {
			return response.Error(c, errors.Unauthorized("Authorization header is required", nil))
		}

		viewer, err := m.verifier.Verify(c.Request().Context(), raw)
		if err != nil {
			return response.Error(c, errors.Unauthorized("Invalid or expired token", err))
		}

		SetViewer(c, viewer)
		return next(c)
	}
}

// ViewerClaims is the HS256 token payload.
type ViewerClaims struct {
	Name string            `json:"name"`
	Role entity.SenderType `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuthenticator signs and verifies HS256 viewer tokens.
type JWTAuthenticator struct {
	secret []byte
}

func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret)}
}

func (a *JWTAuthenticator) Verify(_ context.Context, raw string) (entity.Participant, error) {
	claims := &ViewerClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return entity.Participant{}, err
	}
	if !token.Valid || claims.Subject == "" || !claims.Role.IsValid() {
		return entity.Participant{}, fmt.Errorf("token is missing subject or role")
	}

	return entity.Participant{ID: claims.Subject, Name: claims.Name, Type: claims.Role}, nil
}

// Issue signs a token for viewer valid for ttl.
func (a *JWTAuthenticator) Issue(viewer entity.Participant, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ViewerClaims{
		Name: viewer.Name,
		Role: viewer.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   viewer.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Viewer returns the authenticated participant stored by Authenticate.
func Viewer(c echo.Context) (entity.Participant, bool) {
	viewer, ok := c.Get(viewerKey).(entity.Participant)
	return viewer, ok
}

func SetViewer(c echo.Context, viewer entity.Participant) {
	c.Set("uid", viewer.ID)
	c.Set(viewerKey, viewer)
}
