// Package authz resolves the caller's identity from a bearer token and
// enforces owner-only access.
package authz

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/shop-users/internal/errs"
	"github.com/and161185/shop-users/internal/token"
)

// Messages returned to callers.
const (
	MsgMissingToken = "missing or malformed authorization header"
	MsgInvalidToken = "invalid or expired token"
	MsgNotOwner     = "no permission to modify another user's information"
)

// Principal is an authenticated caller.
type Principal struct {
	UserID    int64
	Username  string
	TokenID   string
	ExpiresAt time.Time
}

// Verifier parses and verifies a raw token. Implemented by *token.Codec.
type Verifier interface {
	Parse(raw string) (*token.Claims, error)
}

// Guard authenticates requests.
type Guard struct {
	v   Verifier
	log *zap.Logger
}

// NewGuard builds a Guard.
func NewGuard(v Verifier, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{v: v, log: log}
}

// Authenticate resolves the principal from an Authorization header value.
func (g *Guard) Authenticate(header string) (Principal, error) {
	raw, ok := BearerToken(header)
	if !ok {
		return Principal{}, errs.Unauthorized(MsgMissingToken)
	}
	claims, err := g.v.Parse(raw)
	if err != nil {
		g.logRejected(err)
		return Principal{}, errs.Wrap(errs.KindUnauthorized, MsgInvalidToken, err)
	}
	return Principal{
		UserID:    claims.UserID,
		Username:  claims.Username,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

func (g *Guard) logRejected(err error) {
	switch {
	case errors.Is(err, token.ErrTokenSignature):
		g.log.Warn("rejected token with bad signature", zap.Error(err))
	case errors.Is(err, token.ErrTokenExpired):
		g.log.Debug("rejected expired token")
	default:
		g.log.Info("rejected malformed token", zap.Error(err))
	}
}

// RequireOwner fails with Forbidden unless the caller owns the target identity.
func RequireOwner(callerID, targetID int64) error {
	if callerID != targetID {
		return errs.Forbidden(MsgNotOwner)
	}
	return nil
}

// BearerToken extracts the token from "Bearer <token>"; the scheme is case-insensitive.
func BearerToken(header string) (string, bool) {
	v := strings.TrimSpace(header)
	if len(v) < 7 || !strings.EqualFold(v[:7], "bearer ") {
		return "", false
	}
	t := strings.TrimSpace(v[7:])
	return t, t != ""
}
