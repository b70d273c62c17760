package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func withTmpConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "shop-users")
}

func Test_cfgDir_And_Paths(t *testing.T) {
	base := withTmpConfig(t)
	if got := cfgDir(); got != base {
		t.Fatalf("cfgDir=%q, want %q", got, base)
	}
	if !strings.HasPrefix(tokenPath(), base) || !strings.HasSuffix(tokenPath(), "token.json") {
		t.Fatalf("tokenPath unexpected: %s", tokenPath())
	}
}

func Test_token_SaveLoad(t *testing.T) {
	_ = withTmpConfig(t)

	if _, err := loadToken(); !errors.Is(err, errLoginRequired) {
		t.Fatalf("want errLoginRequired when token file missing, got %v", err)
	}
	if err := saveToken(tokenFile{AccessToken: "tok", UserID: 7, ExpiresAt: time.Now().Add(time.Minute)}); err != nil {
		t.Fatalf("saveToken: %v", err)
	}
	tf, err := loadToken()
	if err != nil || tf.AccessToken != "tok" || tf.UserID != 7 {
		t.Fatalf("loadToken: %+v err=%v", tf, err)
	}
	if err := saveToken(tokenFile{AccessToken: "tok2", ExpiresAt: time.Now().Add(-time.Minute)}); err != nil {
		t.Fatalf("saveToken expired: %v", err)
	}
	if _, err := loadToken(); err == nil {
		t.Fatalf("want error for expired token")
	}
	if err := removeToken(); err != nil {
		t.Fatalf("removeToken: %v", err)
	}
	if err := removeToken(); err != nil {
		t.Fatalf("removeToken twice: %v", err)
	}
}

func Test_tokenFile_Perms(t *testing.T) {
	_ = withTmpConfig(t)
	if err := saveToken(tokenFile{AccessToken: "x", ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	st, err := os.Stat(tokenPath())
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Fatalf("token perms=%v", st.Mode().Perm())
	}
}

func Test_tokenExpiry(t *testing.T) {
	exp := time.Now().Add(90 * time.Minute).Truncate(time.Second)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"exp": exp.Unix()}).
		SignedString([]byte("whatever"))
	if err != nil {
		t.Fatal(err)
	}
	if got := tokenExpiry(raw, time.Time{}); !got.Equal(exp) {
		t.Fatalf("tokenExpiry=%v want %v", got, exp)
	}

	fb := time.Unix(42, 0)
	if got := tokenExpiry("not-a-jwt", fb); !got.Equal(fb) {
		t.Fatalf("want fallback, got %v", got)
	}
}

// fakeAPI answers the endpoints the CLI uses with envelope bodies.
type fakeAPI struct {
	token string

	mu   sync.Mutex
	seen recorded
}

type recorded struct {
	method, path, auth string
	body               map[string]any
}

func (f *fakeAPI) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := recorded{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization")}
	_ = json.NewDecoder(r.Body).Decode(&req.body)
	f.mu.Lock()
	f.seen = req
	f.mu.Unlock()

	reply := func(status int, msg string, data any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": status, "message": msg, "data": data, "timestamp": time.Now().UnixMilli(),
		})
	}
	user := map[string]any{"id": 7, "username": "alice"}

	switch {
	case r.URL.Path == "/api/users/register":
		reply(http.StatusOK, "registered", user)
	case r.URL.Path == "/api/users/login":
		if req.body["password"] != "secret1" {
			reply(http.StatusUnauthorized, "invalid username or password", nil)
			return
		}
		reply(http.StatusOK, "login successful", map[string]any{
			"userId": 7, "username": "alice", "token": f.token, "tokenType": "Bearer", "expiresIn": 3600000,
		})
	case req.auth != "Bearer "+f.token:
		reply(http.StatusUnauthorized, "invalid or expired token", nil)
	default:
		reply(http.StatusOK, "success", user)
	}
}

func newFakeAPI(t *testing.T) (*fakeAPI, string) {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	f := &fakeAPI{token: raw}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv.URL
}

func Test_run_Flow(t *testing.T) {
	_ = withTmpConfig(t)
	api, addr := newFakeAPI(t)
	ctx := context.Background()
	var out bytes.Buffer

	if err := run(ctx, []string{"-addr", addr, "register", "-u", "alice", "-e", "a@x.io", "-p", "secret1"}, &out); err != nil {
		t.Fatalf("register: %v", err)
	}
	if api.last().body["confirmPassword"] != "secret1" {
		t.Fatalf("register body: %v", api.last().body)
	}
	if !strings.Contains(out.String(), `"alice"`) {
		t.Fatalf("register output: %s", out.String())
	}

	if err := run(ctx, []string{"-addr", addr, "me"}, &out); !errors.Is(err, errLoginRequired) {
		t.Fatalf("me before login: %v", err)
	}

	out.Reset()
	if err := run(ctx, []string{"-addr", addr, "login", "-u", "alice", "-p", "secret1"}, &out); err != nil {
		t.Fatalf("login: %v", err)
	}
	tf, err := loadToken()
	if err != nil || tf.AccessToken != api.token || tf.UserID != 7 {
		t.Fatalf("saved token: %+v err=%v", tf, err)
	}

	out.Reset()
	if err := run(ctx, []string{"-addr", addr, "me"}, &out); err != nil {
		t.Fatalf("me: %v", err)
	}
	if api.last().path != "/api/users/me" || api.last().auth != "Bearer "+api.token {
		t.Fatalf("me request: %+v", api.last())
	}

	if err := run(ctx, []string{"-addr", addr, "update", "-name", "Alice"}, &out); err != nil {
		t.Fatalf("update: %v", err)
	}
	if api.last().method != http.MethodPut || api.last().path != "/api/users/7" {
		t.Fatalf("update request: %s %s", api.last().method, api.last().path)
	}
	if _, sent := api.last().body["phone"]; sent || api.last().body["realName"] != "Alice" {
		t.Fatalf("update body: %v", api.last().body)
	}

	if err := run(ctx, []string{"-addr", addr, "logout"}, &out); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := loadToken(); err == nil {
		t.Fatalf("token survived logout")
	}
}

func Test_run_APIError(t *testing.T) {
	_ = withTmpConfig(t)
	_, addr := newFakeAPI(t)

	err := run(context.Background(), []string{"-addr", addr, "login", "-u", "alice", "-p", "wrong"}, &bytes.Buffer{})
	var ae *apiError
	if !errors.As(err, &ae) || ae.Code != http.StatusUnauthorized || ae.Message != "invalid username or password" {
		t.Fatalf("want 401 apiError, got %v", err)
	}
	if _, err := os.Stat(tokenPath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("token must not be saved on failed login")
	}
}

func Test_run_Usage(t *testing.T) {
	_ = withTmpConfig(t)
	ctx := context.Background()

	var out bytes.Buffer
	if err := run(ctx, nil, &out); !errors.Is(err, errUsage) || !strings.Contains(out.String(), "Commands:") {
		t.Fatalf("no args: err=%v out=%q", err, out.String())
	}
	if err := run(ctx, []string{"bogus"}, &bytes.Buffer{}); !errors.Is(err, errUsage) {
		t.Fatalf("unknown cmd: %v", err)
	}
	if err := run(ctx, []string{"login", "-u", "alice"}, &bytes.Buffer{}); !errors.Is(err, errUsage) {
		t.Fatalf("login missing -p: %v", err)
	}
	if err := run(ctx, []string{"update"}, &bytes.Buffer{}); !errors.Is(err, errUsage) {
		t.Fatalf("update without flags: %v", err)
	}

	out.Reset()
	if err := run(ctx, []string{"version"}, &out); err != nil || !strings.HasPrefix(out.String(), "shop-users ") {
		t.Fatalf("version: err=%v out=%q", err, out.String())
	}
}
