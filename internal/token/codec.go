// Package token issues and verifies the signed bearer tokens that carry a
// caller's identity between requests.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/shop-users/internal/errs"
)

// MinSecretLen is the minimum HS512 key size in bytes.
const MinSecretLen = 64

// Claim names set by the codec. Extra claims cannot override them.
const (
	ClaimID        = "jti"
	ClaimSubject   = "sub"
	ClaimUserID    = "userId"
	ClaimUsername  = "username"
	ClaimIssuedAt  = "iat"
	ClaimExpiresAt = "exp"
)

var reserved = map[string]struct{}{
	ClaimID: {}, ClaimSubject: {}, ClaimUserID: {}, ClaimUsername: {}, ClaimIssuedAt: {}, ClaimExpiresAt: {},
}

// Failure reasons. Every Parse error matches errs.ErrInvalidToken and exactly one of these.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenMalformed = errors.New("token malformed")
)

// Claims is the verified payload of a token.
type Claims struct {
	ID        string
	UserID    int64
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Extra     map[string]any
}

// Token is an issued bearer token.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec signs and verifies HS512 tokens with a process-wide key and lifetime.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	key    []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock replaces the wall clock used for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec builds a Codec. The secret is copied.
func NewCodec(secret []byte, ttl time.Duration, opts ...Option) (*Codec, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("token secret must be at least %d bytes, got %d", MinSecretLen, len(secret))
	}
	c := &Codec{
		key: append([]byte(nil), secret...),
		ttl: ttl,
		now: time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
		jwt.WithJSONNumber(),
	)
	return c, nil
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue signs a token for the given identity. Extra claims are merged into the
// payload; reserved names are ignored.
func (c *Codec) Issue(userID int64, username string, extra map[string]any) (Token, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return Token{}, fmt.Errorf("token id: %w", err)
	}
	now := c.now()
	iat := jwt.NewNumericDate(now)
	exp := jwt.NewNumericDate(now.Add(c.ttl))

	claims := jwt.MapClaims{}
	for k, v := range extra {
		if _, ok := reserved[k]; ok {
			continue
		}
		claims[k] = v
	}
	claims[ClaimID] = jti.String()
	claims[ClaimSubject] = strconv.FormatInt(userID, 10)
	claims[ClaimUserID] = userID
	claims[ClaimUsername] = username
	claims[ClaimIssuedAt] = iat
	claims[ClaimExpiresAt] = exp

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.key)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, IssuedAt: iat.Time, ExpiresAt: exp.Time}, nil
}

// Parse verifies the signature and expiry of raw and returns its claims.
func (c *Codec) Parse(raw string) (*Claims, error) {
	mc := jwt.MapClaims{}
	_, err := c.parser.ParseWithClaims(raw, mc, func(*jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidToken, reason(err))
	}
	claims, err := fromMap(mc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", errs.ErrInvalidToken, ErrTokenMalformed, err)
	}
	return claims, nil
}

// IsExpired reports true when raw fails verification for any reason or its
// expiry is not after the current time.
func (c *Codec) IsExpired(raw string) bool {
	claims, err := c.Parse(raw)
	if err != nil {
		return true
	}
	return !c.now().Before(claims.ExpiresAt)
}

func reason(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenSignature
	default:
		return ErrTokenMalformed
	}
}

func fromMap(mc jwt.MapClaims) (*Claims, error) {
	out := &Claims{}

	id, _ := mc[ClaimID].(string)
	out.ID = id

	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("missing subject")
	}
	uid, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("subject: %w", err)
	}
	if n, ok := mc[ClaimUserID].(json.Number); ok {
		if v, err := n.Int64(); err != nil || v != uid {
			return nil, errors.New("userId does not match subject")
		}
	}
	out.UserID = uid

	name, ok := mc[ClaimUsername].(string)
	if !ok {
		return nil, errors.New("missing username")
	}
	out.Username = name

	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, errors.New("missing exp")
	}
	out.ExpiresAt = exp.Time

	for k, v := range mc {
		if _, ok := reserved[k]; ok {
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]any)
		}
		out.Extra[k] = v
	}
	return out, nil
}
