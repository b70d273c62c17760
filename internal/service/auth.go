// Package service contains the registration, login and profile use cases.
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/shop-users/internal/crypto"
	"github.com/and161185/shop-users/internal/errs"
	"github.com/and161185/shop-users/internal/limiter"
	"github.com/and161185/shop-users/internal/model"
	"github.com/and161185/shop-users/internal/repository"
	"github.com/and161185/shop-users/internal/token"
)

// Messages returned to callers.
const (
	MsgUsernameTaken      = "username already exists"
	MsgEmailTaken         = "email already exists"
	MsgPasswordMismatch   = "passwords do not match"
	MsgBadCredentials     = "invalid username or password"
	MsgAccountDisabled    = "account disabled"
	MsgTooManyAttempts    = "too many login attempts, try again later"
	MsgRequiredFields     = "username, email and password are required"
	MsgPasswordTooLong    = "password must be at most 72 bytes"
	MsgInternal           = "internal server error"
	MsgUserNotFound       = "user not found"
	MsgInvalidPhoneNumber = "invalid phone number"
)

// PasswordHasher is the credential verifier. Implemented by *crypto.Hasher.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, stored string) bool
}

// TokenIssuer signs identity tokens. Implemented by *token.Codec.
type TokenIssuer interface {
	Issue(userID int64, username string, extra map[string]any) (token.Token, error)
	TTL() time.Duration
}

// AuthService defines registration and login.
type AuthService interface {
	// Register creates an active account and returns it.
	Register(ctx context.Context, in model.RegisterInput) (*model.User, error)
	// Login verifies credentials, applies rate limiting by (username, ip) and issues a token.
	Login(ctx context.Context, in model.LoginInput, ip string) (model.Session, error)
}

type AuthServiceImpl struct {
	users       repository.UserRepository
	hasher      PasswordHasher
	tokens      TokenIssuer
	lim         limiter.Limiter
	phoneRegion string
	log         *zap.Logger

	dummyOnce sync.Once
	dummy     string // hash checked for unknown usernames so both paths cost one bcrypt
}

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthDeps bundles AuthServiceImpl collaborators.
type AuthDeps struct {
	Users       repository.UserRepository
	Hasher      PasswordHasher
	Tokens      TokenIssuer
	Limiter     limiter.Limiter // nil disables limiting
	PhoneRegion string
	Log         *zap.Logger
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(d AuthDeps) *AuthServiceImpl {
	if d.Limiter == nil {
		d.Limiter = limiter.Nop{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &AuthServiceImpl{
		users:       d.Users,
		hasher:      d.Hasher,
		tokens:      d.Tokens,
		lim:         d.Limiter,
		phoneRegion: d.PhoneRegion,
		log:         d.Log,
	}
}

// Register checks username uniqueness, then email uniqueness, then password
// confirmation; the first failing check wins.
func (s *AuthServiceImpl) Register(ctx context.Context, in model.RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, errs.Validation(MsgRequiredFields)
	}

	taken, err := s.users.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, s.internal("exists by username", err)
	}
	if taken {
		return nil, errs.Conflict(MsgUsernameTaken)
	}
	taken, err = s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, s.internal("exists by email", err)
	}
	if taken {
		return nil, errs.Conflict(MsgEmailTaken)
	}
	if in.Password != in.ConfirmPassword {
		return nil, errs.Validation(MsgPasswordMismatch)
	}

	phone, err := NormalizePhone(in.Phone, s.phoneRegion)
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if errors.Is(err, pkgcrypto.ErrPasswordTooLong) {
		return nil, errs.Validation(MsgPasswordTooLong)
	}
	if err != nil {
		return nil, s.internal("hash password", err)
	}

	u := &model.User{
		Username: in.Username,
		Email:    in.Email,
		PwdHash:  hash,
		Phone:    phone,
		RealName: strings.TrimSpace(in.RealName),
		Status:   model.StatusActive,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if _, ok := errs.As(err); ok {
			return nil, err
		}
		return nil, s.internal("create user", err)
	}
	s.log.Info("user registered", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

// Login authenticates with rate limiting by (username, ip). Unknown usernames
// and wrong passwords produce the same error.
func (s *AuthServiceImpl) Login(ctx context.Context, in model.LoginInput, ip string) (model.Session, error) {
	ipHash := limiter.HashIP(ip)

	allowed, retry, err := s.lim.Allow(ctx, in.Username, ipHash)
	if err != nil {
		return model.Session{}, s.internal("limiter allow", err)
	}
	if !allowed {
		s.log.Info("login rate limited", zap.String("username", in.Username), zap.Duration("retry_after", retry))
		return model.Session{}, errs.RateLimited(MsgTooManyAttempts)
	}

	u, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.Session{}, s.internal("get by username", err)
	}
	var stored string
	if err == nil {
		stored = u.PwdHash
	} else {
		stored = s.dummyHash()
	}
	if !s.hasher.Verify(in.Password, stored) || err != nil || in.Password == "" {
		s.recordFailure(ctx, in.Username, ipHash)
		return model.Session{}, errs.Unauthorized(MsgBadCredentials)
	}

	// Credentials were correct, so the counter resets even for a disabled account.
	if err := s.lim.Success(ctx, in.Username, ipHash); err != nil {
		s.log.Warn("limiter reset failed", zap.Error(err))
	}
	if !u.Active() {
		return model.Session{}, errs.Forbidden(MsgAccountDisabled)
	}

	tok, err := s.tokens.Issue(u.ID, u.Username, nil)
	if err != nil {
		return model.Session{}, s.internal("issue token", err)
	}
	return model.Session{
		UserID:    u.ID,
		Username:  u.Username,
		Token:     tok.Value,
		TokenType: model.TokenTypeBearer,
		ExpiresIn: s.tokens.TTL(),
		ExpiresAt: tok.ExpiresAt,
	}, nil
}

func (s *AuthServiceImpl) dummyHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("shop-users/unknown-account")
		if err != nil {
			s.log.Warn("dummy hash", zap.Error(err))
			return
		}
		s.dummy = h
	})
	return s.dummy
}

func (s *AuthServiceImpl) recordFailure(ctx context.Context, username string, ipHash []byte) {
	blocked, blockFor, err := s.lim.Failure(ctx, username, ipHash)
	switch {
	case err != nil:
		s.log.Warn("limiter failure record failed", zap.Error(err))
	case blocked:
		s.log.Warn("login blocked after repeated failures",
			zap.String("username", username), zap.Duration("block_for", blockFor))
	}
}

func (s *AuthServiceImpl) internal(op string, err error) error {
	s.log.Error(op, zap.Error(err))
	return errs.Wrap(errs.KindInternal, MsgInternal, err)
}
