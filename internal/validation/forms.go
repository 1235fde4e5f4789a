package validation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"chirper/internal/models"
)

const dateLayout = "2006-01-02"

// minBirthYear is the first year offered by the date of birth selector.
const minBirthYear = 1901

// SignupInfoForm is stage one of signup.
type SignupInfoForm struct {
	Username    string `form:"username" json:"username" validate:"required,max=30,username"`
	Email       string `form:"email" json:"email" validate:"required,max=254,email"`
	Phone       string `form:"phone" json:"phone" validate:"max=32,phone"`
	DateOfBirth string `form:"date_of_birth" json:"date_of_birth"`
	BirthYear   string `form:"date_of_birth_year" json:"date_of_birth_year,omitempty"`
	BirthMonth  string `form:"date_of_birth_month" json:"date_of_birth_month,omitempty"`
	BirthDay    string `form:"date_of_birth_day" json:"date_of_birth_day,omitempty"`
}

// Normalize trims every field.
func (f *SignupInfoForm) Normalize() {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.DateOfBirth = strings.TrimSpace(f.DateOfBirth)
	f.BirthYear = strings.TrimSpace(f.BirthYear)
	f.BirthMonth = strings.TrimSpace(f.BirthMonth)
	f.BirthDay = strings.TrimSpace(f.BirthDay)
}

// Validate checks the form. On success the phone is normalized to E.164 and
// the parsed birth date is returned.
func (f *SignupInfoForm) Validate(now time.Time) (time.Time, models.FieldErrors) {
	f.Normalize()
	fe := Check(f)

	dob, msg := f.birthDate(now)
	if msg != "" {
		fe.Add("date_of_birth", msg)
	}
	if fe.Empty() {
		f.Phone = NormalizePhone(f.Phone)
		f.DateOfBirth = dob.Format(dateLayout)
	}
	return dob, fe
}

func (f *SignupInfoForm) birthDate(now time.Time) (time.Time, string) {
	if f.DateOfBirth != "" {
		d, err := time.Parse(dateLayout, f.DateOfBirth)
		if err != nil {
			return time.Time{}, MsgInvalidDate
		}
		return d, ""
	}
	if f.BirthYear == "" && f.BirthMonth == "" && f.BirthDay == "" {
		return time.Time{}, MsgRequired
	}
	y, errY := strconv.Atoi(f.BirthYear)
	m, errM := strconv.Atoi(f.BirthMonth)
	d, errD := strconv.Atoi(f.BirthDay)
	if errY != nil || errM != nil || errD != nil {
		return time.Time{}, MsgInvalidDate
	}
	if y < minBirthYear || y > now.Year() {
		return time.Time{}, MsgInvalidDate
	}
	date := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if date.Year() != y || int(date.Month()) != m || date.Day() != d {
		return time.Time{}, MsgInvalidDate
	}
	return date, ""
}

// ParseDate parses a stored YYYY-MM-DD birth date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}

// PasswordForm is stage two of signup.
type PasswordForm struct {
	Password1 string `form:"password1" json:"-"`
	Password2 string `form:"password2" json:"-"`
}

// Validate applies the policy against the account's username and email.
func (f PasswordForm) Validate(policy PasswordPolicy, username, email string) models.FieldErrors {
	return policy.ValidatePair(f.Password1, f.Password2, "password1", "password2", PasswordAttributes(username, email))
}

// SigninForm is the sign-in form.
type SigninForm struct {
	Username string `form:"username" json:"username" validate:"required"`
	Password string `form:"password" json:"-" validate:"required"`
	Next     string `form:"next" json:"next,omitempty"`
}

// Validate checks required fields only; credentials are checked by the caller.
func (f *SigninForm) Validate() models.FieldErrors {
	f.Username = strings.TrimSpace(f.Username)
	return Check(f)
}

// PasswordResetForm requests a reset link.
type PasswordResetForm struct {
	Email string `form:"email" json:"email" validate:"required,max=254,email"`
}

// Validate checks the email address.
func (f *PasswordResetForm) Validate() models.FieldErrors {
	f.Email = strings.TrimSpace(f.Email)
	return Check(f)
}

// SetPasswordForm chooses a new password from a reset link.
type SetPasswordForm struct {
	NewPassword1 string `form:"new_password1" json:"-"`
	NewPassword2 string `form:"new_password2" json:"-"`
}

// Validate applies the policy against the account's username and email.
func (f SetPasswordForm) Validate(policy PasswordPolicy, username, email string) models.FieldErrors {
	return policy.ValidatePair(f.NewPassword1, f.NewPassword2, "new_password1", "new_password2", PasswordAttributes(username, email))
}

// TweetForm creates or edits a tweet. The image arrives as a multipart file.
type TweetForm struct {
	Body       string `form:"body" json:"body" validate:"required,max=280"`
	ImageClear string `form:"image-clear" json:"-"`
}

// ClearImage reports whether the clear checkbox was ticked.
func (f TweetForm) ClearImage() bool {
	return checked(f.ImageClear)
}

// Normalize trims the body.
func (f *TweetForm) Normalize() {
	f.Body = strings.TrimSpace(f.Body)
}

// Validate normalizes and checks the body.
func (f *TweetForm) Validate() models.FieldErrors {
	f.Normalize()
	return Check(f)
}

// ProfileForm edits username and bio. The avatar arrives as a multipart file.
type ProfileForm struct {
	Username        string `form:"username" json:"username" validate:"required,max=30,username"`
	Bio             string `form:"bio" json:"bio" validate:"max=280"`
	ProfileImgClear string `form:"profile_img-clear" json:"-"`
}

// ClearAvatar reports whether the clear checkbox was ticked.
func (f ProfileForm) ClearAvatar() bool {
	return checked(f.ProfileImgClear)
}

// Normalize trims username and bio.
func (f *ProfileForm) Normalize() {
	f.Username = strings.TrimSpace(f.Username)
	f.Bio = strings.TrimSpace(f.Bio)
}

// Validate normalizes and checks the form.
func (f *ProfileForm) Validate() models.FieldErrors {
	f.Normalize()
	return Check(f)
}

func checked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
