// Package convert maps domain models to REST payloads and back.
package convert

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/and161185/shop-users/internal/errs"
	"github.com/and161185/shop-users/internal/model"
)

// --- responses ---

// UserView is the public representation of an account. It never carries the password hash.
type UserView struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	RealName  string    `json:"realName,omitempty"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ToUserView converts a domain user.
func ToUserView(u *model.User) *UserView {
	if u == nil {
		return nil
	}
	return &UserView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Phone:     u.Phone,
		RealName:  u.RealName,
		AvatarURL: u.AvatarURL,
		Status:    string(u.Status),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// LoginView is the login result.
type LoginView struct {
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
	ExpiresIn int64  `json:"expiresIn"` // milliseconds
}

// ToLoginView converts a session outcome.
func ToLoginView(s model.Session) LoginView {
	return LoginView{
		UserID:    s.UserID,
		Username:  s.Username,
		Token:     s.Token,
		TokenType: s.TokenType,
		ExpiresIn: s.ExpiresIn.Milliseconds(),
	}
}

// --- requests ---

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Phone           string `json:"phone,omitempty"`
	RealName        string `json:"realName,omitempty"`
}

// Validate checks shape only. Uniqueness and password confirmation are
// decided by the service so their ordering stays in one place.
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 50)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 255), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 72)),
		validation.Field(&r.ConfirmPassword, validation.Required),
		validation.Field(&r.Phone, validation.Length(0, 20)),
		validation.Field(&r.RealName, validation.Length(0, 100)),
	)
}

// ToModel converts to the service input.
func (r RegisterRequest) ToModel() model.RegisterInput {
	return model.RegisterInput{
		Username:        r.Username,
		Email:           r.Email,
		Password:        r.Password,
		ConfirmPassword: r.ConfirmPassword,
		Phone:           r.Phone,
		RealName:        r.RealName,
	}
}

// LoginRequest is the credential payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// ToModel converts to the service input.
func (r LoginRequest) ToModel() model.LoginInput {
	return model.LoginInput{Username: r.Username, Password: r.Password}
}

// UpdateProfileRequest carries optional fields; absent fields stay unchanged.
type UpdateProfileRequest struct {
	Phone     *string `json:"phone,omitempty"`
	RealName  *string `json:"realName,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Phone, validation.Length(0, 20)),
		validation.Field(&r.RealName, validation.Length(0, 100)),
		validation.Field(&r.AvatarURL, validation.Length(0, 500), is.URL),
	)
}

// ToModel converts to the service input.
func (r UpdateProfileRequest) ToModel() model.ProfileUpdate {
	return model.ProfileUpdate{Phone: r.Phone, RealName: r.RealName, AvatarURL: r.AvatarURL}
}

// Validatable is implemented by request payloads.
type Validatable interface{ Validate() error }

// Check runs v.Validate and tags a failure as a validation error.
func Check(v Validatable) error {
	if err := v.Validate(); err != nil {
		return errs.Wrap(errs.KindValidation, err.Error(), err)
	}
	return nil
}
