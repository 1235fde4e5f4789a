package validation

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"chirper/internal/models"

	"github.com/pmezard/go-difflib/difflib"
)

const maxSimilarity = 0.7

//go:embed common_passwords.txt
var commonPasswordsRaw []byte

var commonPasswords = loadCommonPasswords(commonPasswordsRaw)

var nonWord = regexp.MustCompile(`\W+`)

func loadCommonPasswords(raw []byte) map[string]struct{} {
	out := make(map[string]struct{})
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out[strings.ToLower(line)] = struct{}{}
	}
	return out
}

// UserAttribute is a value the password must not resemble, with the name
// used in the error message.
type UserAttribute struct {
	Name  string
	Value string
}

// PasswordAttributes returns the attributes checked for similarity.
func PasswordAttributes(username, email string) []UserAttribute {
	return []UserAttribute{
		{Name: "username", Value: username},
		{Name: "email address", Value: email},
	}
}

// PasswordPolicy rejects short, numeric, common and look-alike passwords.
type PasswordPolicy struct {
	MinLength int
}

// DefaultPasswordPolicy uses an eight character minimum.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 8}
}

// Validate returns every rule the password breaks, in a stable order.
func (p PasswordPolicy) Validate(password string, attrs []UserAttribute) []string {
	var errs []string

	if msg := similarTo(password, attrs); msg != "" {
		errs = append(errs, msg)
	}
	if utf8.RuneCountInString(password) < p.MinLength {
		errs = append(errs, fmt.Sprintf(MsgPasswordTooShort, p.MinLength))
	}
	if _, ok := commonPasswords[strings.ToLower(strings.TrimSpace(password))]; ok {
		errs = append(errs, MsgPasswordCommon)
	}
	if isNumeric(password) {
		errs = append(errs, MsgPasswordNumeric)
	}
	return errs
}

// ValidatePair checks a password and its confirmation. Strength rules run
// only once both entries match; all messages land on confirmField.
func (p PasswordPolicy) ValidatePair(password, confirm, field, confirmField string, attrs []UserAttribute) models.FieldErrors {
	fe := models.FieldErrors{}
	if password == "" {
		fe.Add(field, MsgRequired)
	}
	if confirm == "" {
		fe.Add(confirmField, MsgRequired)
	}
	if !fe.Empty() {
		return fe
	}
	if password != confirm {
		fe.Add(confirmField, MsgPasswordMismatch)
		return fe
	}
	for _, msg := range p.Validate(password, attrs) {
		fe.Add(confirmField, msg)
	}
	return fe
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func similarTo(password string, attrs []UserAttribute) string {
	pw := strings.ToLower(password)
	for _, attr := range attrs {
		if attr.Value == "" {
			continue
		}
		value := strings.ToLower(attr.Value)
		parts := append(nonWord.Split(value, -1), value)
		for _, part := range parts {
			if exceedsMaxLengthRatio(pw, part) {
				continue
			}
			if quickRatio(pw, part) >= maxSimilarity {
				return fmt.Sprintf(MsgPasswordSimilar, attr.Name)
			}
		}
	}
	return ""
}

// exceedsMaxLengthRatio skips values far shorter than the password, which
// cannot reach the similarity threshold anyway.
func exceedsMaxLengthRatio(password, value string) bool {
	pwLen := float64(utf8.RuneCountInString(password))
	valueLen := float64(utf8.RuneCountInString(value))
	bound := maxSimilarity / 2 * pwLen
	return pwLen >= 10*valueLen && valueLen < bound
}

func quickRatio(a, b string) float64 {
	m := difflib.NewMatcher(runes(a), runes(b))
	return m.QuickRatio()
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
