package service

import (
	"context"
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"go.uber.org/zap"

	"github.com/and161185/shop-users/internal/authz"
	"github.com/and161185/shop-users/internal/errs"
	"github.com/and161185/shop-users/internal/model"
	"github.com/and161185/shop-users/internal/repository"
)

// UserService exposes profile reads and owner-only updates.
type UserService interface {
	// Get returns a user by ID.
	Get(ctx context.Context, id int64) (*model.User, error)
	// UpdateProfile applies upd to targetID on behalf of callerID.
	UpdateProfile(ctx context.Context, callerID, targetID int64, upd model.ProfileUpdate) (*model.User, error)
}

type UserServiceImpl struct {
	users       repository.UserRepository
	phoneRegion string
	log         *zap.Logger
}

var _ UserService = (*UserServiceImpl)(nil)

// NewUserService constructs UserService.
func NewUserService(users repository.UserRepository, phoneRegion string, log *zap.Logger) *UserServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserServiceImpl{users: users, phoneRegion: phoneRegion, log: log}
}

// Get returns a user by ID or NotFound.
func (s *UserServiceImpl) Get(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.NotFound(MsgUserNotFound)
	}
	if err != nil {
		s.log.Error("get user", zap.Int64("user_id", id), zap.Error(err))
		return nil, errs.Wrap(errs.KindInternal, MsgInternal, err)
	}
	return u, nil
}

// UpdateProfile checks ownership before touching the store.
func (s *UserServiceImpl) UpdateProfile(ctx context.Context, callerID, targetID int64, upd model.ProfileUpdate) (*model.User, error) {
	if err := authz.RequireOwner(callerID, targetID); err != nil {
		s.log.Info("cross-user update rejected", zap.Int64("caller", callerID), zap.Int64("target", targetID))
		return nil, err
	}
	if upd.Phone != nil {
		phone, err := NormalizePhone(*upd.Phone, s.phoneRegion)
		if err != nil {
			return nil, err
		}
		upd.Phone = &phone
	}
	if upd.RealName != nil {
		name := strings.TrimSpace(*upd.RealName)
		upd.RealName = &name
	}
	if upd.Empty() {
		return s.Get(ctx, targetID)
	}

	u, err := s.users.UpdateProfile(ctx, targetID, upd)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.NotFound(MsgUserNotFound)
	}
	if err != nil {
		s.log.Error("update profile", zap.Int64("user_id", targetID), zap.Error(err))
		return nil, errs.Wrap(errs.KindInternal, MsgInternal, err)
	}
	return u, nil
}

// NormalizePhone formats raw as E.164. Numbers without a country prefix are
// parsed in region. Empty input stays empty.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	num, err := phonenumbers.Parse(raw, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", errs.Validation(MsgInvalidPhoneNumber)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
