// Password hashing.
//
// HASH FORMAT:
// New hashes use salted, iterated PBKDF2-HMAC-SHA256 in the self-describing
// text format that existing users.db files already contain:
//
//	pbkdf2:sha256:600000$<16-char salt>$<64 hex chars>
//	       ^      ^       ^               ^
//	       |      |       salt (ASCII)    derived key, hex
//	       |      iterations
//	       digest
//
// The iteration count travels with the hash, so raising it later only
// affects new signups; old rows keep verifying with their own count.
//
// Verify also accepts bcrypt hashes ($2a$/$2b$/$2y$) so accounts imported
// from a bcrypt-based store keep working.

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// defaultIterations is the PBKDF2 work factor for new hashes.
	defaultIterations = 600000

	// legacyIterations applies to hashes written as plain "pbkdf2:sha256"
	// with no explicit count.
	legacyIterations = 260000

	saltLength = 16
	saltChars  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService hashes and verifies passwords.
//
// It's a struct (not free functions) so that the iteration count can be
// lowered in tests.
type PasswordService struct {
	iterations int
}

// NewPasswordService creates a PasswordService with the default work factor.
func NewPasswordService() *PasswordService {
	return &PasswordService{iterations: defaultIterations}
}

// NewPasswordServiceForTest creates a PasswordService with a custom PBKDF2
// iteration count. Use a small count (e.g. 1000) in tests of other packages.
//
// Do NOT use in production.
func NewPasswordServiceForTest(iterations int) *PasswordService {
	return &PasswordService{iterations: iterations}
}

// Hash derives a storable hash string from plaintext with a fresh random salt.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	salt, err := genSalt(saltLength)
	if err != nil {
		return "", fmt.Errorf("auth: generating salt: %w", err)
	}

	key := pbkdf2.Key([]byte(plaintext), []byte(salt), p.iterations, sha256.Size, sha256.New)

	return fmt.Sprintf("pbkdf2:sha256:%d$%s$%s", p.iterations, salt, hex.EncodeToString(key)), nil
}

// Verify checks plaintext against a stored hash.
//
// Returns nil on a match, ErrPasswordMismatch on a wrong password, and a
// different error for a hash it cannot parse. The final comparison is
// constant-time for both supported formats.
func (p *PasswordService) Verify(stored, plaintext string) error {
	if strings.HasPrefix(stored, "$2") {
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plaintext))
		if err != nil {
			if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
				return ErrPasswordMismatch
			}
			return fmt.Errorf("auth: comparing bcrypt hash: %w", err)
		}
		return nil
	}

	method, salt, want, ok := splitHash(stored)
	if !ok {
		return errors.New("auth: unrecognised password hash format")
	}

	newHash, iterations, err := parseMethod(method)
	if err != nil {
		return err
	}

	wantKey, err := hex.DecodeString(want)
	if err != nil || len(wantKey) == 0 {
		return errors.New("auth: malformed password hash")
	}

	got := pbkdf2.Key([]byte(plaintext), []byte(salt), iterations, len(wantKey), newHash)
	if subtle.ConstantTimeCompare(got, wantKey) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

// splitHash splits "method$salt$hex".
func splitHash(stored string) (method, salt, key string, ok bool) {
	parts := strings.SplitN(stored, "$", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// parseMethod reads "pbkdf2:<digest>[:<iterations>]".
func parseMethod(method string) (func() hash.Hash, int, error) {
	fields := strings.Split(method, ":")
	if len(fields) < 2 || len(fields) > 3 || fields[0] != "pbkdf2" {
		return nil, 0, fmt.Errorf("auth: unsupported hash method %q", method)
	}
	if fields[1] != "sha256" {
		return nil, 0, fmt.Errorf("auth: unsupported pbkdf2 digest %q", fields[1])
	}

	iterations := legacyIterations
	if len(fields) == 3 {
		n, err := strconv.Atoi(fields[2])
		if err != nil || n <= 0 {
			return nil, 0, fmt.Errorf("auth: bad pbkdf2 iteration count %q", fields[2])
		}
		iterations = n
	}

	return sha256.New, iterations, nil
}

func genSalt(n int) (string, error) {
	max := big.NewInt(int64(len(saltChars)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = saltChars[idx.Int64()]
	}
	return string(b), nil
}
