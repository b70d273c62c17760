package crypto

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	return h
}

func TestNewHasher_Cost(t *testing.T) {
	t.Parallel()

	h, err := NewHasher(0)
	if err != nil {
		t.Fatalf("NewHasher(0): %v", err)
	}
	if h.cost != DefaultCost {
		t.Fatalf("cost=%d, want=%d", h.cost, DefaultCost)
	}
	if _, err := NewHasher(bcrypt.MaxCost + 1); err == nil {
		t.Fatalf("expected error for cost above max")
	}
	if _, err := NewHasher(bcrypt.MinCost - 1); err == nil {
		t.Fatalf("expected error for cost below min")
	}
}

func TestHash_SaltedPerCall(t *testing.T) {
	t.Parallel()
	h := newTestHasher(t)

	a, err := h.Hash("p@ssw0rd")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := h.Hash("p@ssw0rd")
	if err != nil {
		t.Fatalf("Hash(2): %v", err)
	}
	if a == b {
		t.Fatalf("two hashes of the same password are equal, salt not applied")
	}
	if strings.Contains(a, "p@ssw0rd") {
		t.Fatalf("hash leaks plaintext")
	}
	if !h.Verify("p@ssw0rd", a) || !h.Verify("p@ssw0rd", b) {
		t.Fatalf("both hashes must verify")
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()
	h := newTestHasher(t)

	hash, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if !h.Verify("correct horse battery staple", hash) {
		t.Fatalf("Verify: expected true for correct password")
	}
	if h.Verify("wrong", hash) {
		t.Fatalf("Verify: expected false for wrong password")
	}
	if h.Verify("", hash) {
		t.Fatalf("Verify: expected false for empty password")
	}
	if h.Verify("correct horse battery staple", "not-a-bcrypt-hash") {
		t.Fatalf("Verify: expected false for malformed hash")
	}
}

func TestHash_TooLong(t *testing.T) {
	t.Parallel()
	h := newTestHasher(t)

	if _, err := h.Hash(strings.Repeat("x", MaxPasswordLen+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("want ErrPasswordTooLong, got %v", err)
	}
	if _, err := h.Hash(strings.Repeat("x", MaxPasswordLen)); err != nil {
		t.Fatalf("72 bytes must hash: %v", err)
	}
}
