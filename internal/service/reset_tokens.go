package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"chirper/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidResetLink covers every way a reset link can be unusable.
var ErrInvalidResetLink = errors.New("invalid password reset link")

const resetIssuer = "chirper-password-reset"

// ResetTokens issues and checks password reset tokens. A token embeds a
// fingerprint of the password hash and last login time, so it stops
// working once the password changes or the user signs in.
type ResetTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewResetTokens returns a token issuer signing with secret.
func NewResetTokens(secret string, ttl time.Duration) *ResetTokens {
	return &ResetTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func fingerprint(u *models.User) string {
	login := ""
	if u.LastLogin != nil {
		login = strconv.FormatInt(u.LastLogin.UTC().Unix(), 10)
	}
	sum := sha256.Sum256([]byte(u.Password + "|" + login))
	return hex.EncodeToString(sum[:16])
}

// Issue creates a token for u. u must carry its password hash.
func (t *ResetTokens) Issue(u *models.User) (string, error) {
	now := t.now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(u.ID), 10),
		"iss": resetIssuer,
		"exp": now.Add(t.ttl).Unix(),
		"iat": now.Unix(),
		"jti": uuid.NewString(),
		"pwf": fingerprint(u),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify checks that token was issued for u in its current state.
func (t *ResetTokens) Verify(token string, u *models.User) error {
	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(resetIssuer),
		jwt.WithSubject(strconv.FormatUint(uint64(u.ID), 10)),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return ErrInvalidResetLink
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return ErrInvalidResetLink
	}
	pwf, _ := claims["pwf"].(string)
	if subtle.ConstantTimeCompare([]byte(pwf), []byte(fingerprint(u))) != 1 {
		return ErrInvalidResetLink
	}
	return nil
}

// EncodeUID renders a user id for reset links.
func EncodeUID(id uint) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(id), 10)))
}

// DecodeUID reverses EncodeUID.
func DecodeUID(s string) (uint, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return 0, ErrInvalidResetLink
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidResetLink
	}
	return uint(id), nil
}
