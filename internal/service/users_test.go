package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/shop-users/internal/authz"
	"github.com/and161185/shop-users/internal/errs"
	"github.com/and161185/shop-users/internal/model"
)

func ptr(s string) *string { return &s }

func TestUsers_Get(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	u := f.seed(t, "alice", "a@x.com", "pw", model.StatusActive)
	svc := NewUserService(f.users, "CN", zaptest.NewLogger(t))

	got, err := svc.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = svc.Get(context.Background(), 999)
	require.ErrorIs(t, err, errs.ErrNotFound)
	wantKind(t, err, errs.KindNotFound, MsgUserNotFound)

	f.users.getErr = errors.New("db down")
	_, err = svc.Get(context.Background(), u.ID)
	wantKind(t, err, errs.KindInternal, MsgInternal)
}

func TestUsers_UpdateProfile_Owner(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	u := f.seed(t, "alice", "a@x.com", "pw", model.StatusActive)
	svc := NewUserService(f.users, "CN", zaptest.NewLogger(t))

	got, err := svc.UpdateProfile(context.Background(), u.ID, u.ID, model.ProfileUpdate{
		Phone:    ptr("13800138000"),
		RealName: ptr("  Alice Liddell "),
	})
	require.NoError(t, err)
	assert.Equal(t, "+8613800138000", got.Phone)
	assert.Equal(t, "Alice Liddell", got.RealName)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, f.users.byName["alice"].PwdHash, got.PwdHash)
}

func TestUsers_UpdateProfile_OtherUserForbidden(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t, "alice", "a@x.com", "pw", model.StatusActive)
	f.seed(t, "bob", "b@x.com", "pw", model.StatusActive)
	svc := NewUserService(f.users, "CN", nil)

	_, err := svc.UpdateProfile(context.Background(), 1, 2, model.ProfileUpdate{RealName: ptr("x")})
	require.ErrorIs(t, err, errs.ErrForbidden)
	wantKind(t, err, errs.KindForbidden, authz.MsgNotOwner)
	assert.Zero(t, f.users.updateCalls)

	// ownership is checked before existence
	_, err = svc.UpdateProfile(context.Background(), 1, 404, model.ProfileUpdate{RealName: ptr("x")})
	require.ErrorIs(t, err, errs.ErrForbidden)
}

func TestUsers_UpdateProfile_Edges(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := NewUserService(f.users, "CN", nil)

	_, err := svc.UpdateProfile(context.Background(), 7, 7, model.ProfileUpdate{AvatarURL: ptr("https://x/a.png")})
	wantKind(t, err, errs.KindNotFound, MsgUserNotFound)

	_, err = svc.UpdateProfile(context.Background(), 7, 7, model.ProfileUpdate{Phone: ptr("not-a-phone")})
	wantKind(t, err, errs.KindValidation, MsgInvalidPhoneNumber)

	u := f.seed(t, "dave", "d@x.com", "pw", model.StatusActive)
	before := f.users.updateCalls
	got, err := svc.UpdateProfile(context.Background(), u.ID, u.ID, model.ProfileUpdate{})
	require.NoError(t, err)
	assert.Equal(t, "dave", got.Username)
	assert.Equal(t, before, f.users.updateCalls, "empty update must not hit the store")
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, region, want string
		ok               bool
	}{
		{"", "CN", "", true},
		{"13800138000", "CN", "+8613800138000", true},
		{"+1 650-253-0000", "CN", "+16502530000", true},
		{"(650) 253-0000", "US", "+16502530000", true},
		{"123", "CN", "", false},
		{"hello", "CN", "", false},
	}
	for _, tc := range cases {
		got, err := NormalizePhone(tc.in, tc.region)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.want, got, tc.in)
		} else {
			require.ErrorIs(t, err, errs.ErrValidation, tc.in)
		}
	}
}
