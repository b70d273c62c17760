package rest

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/and161185/shop-users/internal/authz"
	"github.com/and161185/shop-users/internal/convert"
	"github.com/and161185/shop-users/internal/errs"
	"github.com/and161185/shop-users/internal/service"
)

const maxBodyBytes = 1 << 20

// UserHandler serves /api/users.
type UserHandler struct {
	auth  service.AuthService
	users service.UserService
	log   *zap.Logger
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(auth service.AuthService, users service.UserService, log *zap.Logger) *UserHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserHandler{auth: auth, users: users, log: log}
}

// Register handles POST /register.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req convert.RegisterRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	u, err := h.auth.Register(r.Context(), req.ToModel())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, "registered", convert.ToUserView(u))
}

// Login handles POST /login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req convert.LoginRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	sess, err := h.auth.Login(r.Context(), req.ToModel(), clientIP(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, "login successful", convert.ToLoginView(sess))
}

// Me handles GET /me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := authz.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, h.log, errs.Unauthorized(authz.MsgMissingToken))
		return
	}
	u, err := h.users.Get(r.Context(), p.UserID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, "", convert.ToUserView(u))
}

// Get handles GET /{userId}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	u, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, "", convert.ToUserView(u))
}

// Update handles PUT /{userId}. Only the owner may update.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := authz.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, h.log, errs.Unauthorized(authz.MsgMissingToken))
		return
	}
	id, err := userIDParam(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := authz.RequireOwner(p.UserID, id); err != nil {
		writeError(w, h.log, err)
		return
	}
	var req convert.UpdateProfileRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	u, err := h.users.UpdateProfile(r.Context(), p.UserID, id, req.ToModel())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, "updated", convert.ToUserView(u))
}

func decode(w http.ResponseWriter, r *http.Request, dst convert.Validatable) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errs.Wrap(errs.KindValidation, "invalid request body", err)
	}
	return convert.Check(dst)
}

func userIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Validation("invalid user id")
	}
	return id, nil
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
