package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apierr "github.com/granary-project/granary/pkg/api/types/errors"
	"github.com/labstack/echo/v4"
)

const ScopeQueueAdmin = "queue-admin"

type QueueAdminClaim struct {
	jwt.RegisteredClaims

	// private claims
	Scope string `json:"granary/scope"`
}

// NewQueueAdminToken signs a token granting queue decisions to subject
// until exp.
func NewQueueAdminToken(secret []byte, subject string, exp time.Time) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, QueueAdminClaim{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Scope: ScopeQueueAdmin,
	})
	return tok.SignedString(secret)
}

// QueueAdminOnly guards queue decision endpoints with a bearer token
// signed by secret.
//
// An empty secret refuses every request.
func QueueAdminOnly(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(secret) == 0 {
				return apierr.NewErrorMessage(
					http.StatusForbidden, "queue administration is disabled",
				)
			}

			auth := c.Request().Header.Get("Authorization")
			token, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok {
				return apierr.NewErrorMessage(
					http.StatusUnauthorized, "bearer token required",
				)
			}

			claim := new(QueueAdminClaim)
			if _, err := jwt.ParseWithClaims(
				token, claim,
				func(t *jwt.Token) (interface{}, error) {
					if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
						return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
					}
					return secret, nil
				},
			); err != nil {
				return apierr.NewErrorMessage(
					http.StatusUnauthorized, "invalid token", apierr.WithError(err),
				)
			}

			if claim.Scope != ScopeQueueAdmin {
				return apierr.NewErrorMessage(
					http.StatusForbidden, "token does not grant queue administration",
				)
			}

			return next(c)
		}
	}
}
