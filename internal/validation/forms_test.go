package validation

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func validInfo() SignupInfoForm {
	return SignupInfoForm{
		Username:   "chirpuser",
		Email:      "alice@example.com",
		Phone:      "+1 201-555-0123",
		BirthYear:  "1990",
		BirthMonth: "2",
		BirthDay:   "14",
	}
}

func TestSignupInfoForm_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*SignupInfoForm)
		field  string
		msg    string
	}{
		{"Missing Username", func(f *SignupInfoForm) { f.Username = "  " }, "username", MsgRequired},
		{"Long Username", func(f *SignupInfoForm) { f.Username = strings.Repeat("a", 31) }, "username", fmt.Sprintf(MsgMaxLength, "30", 31)},
		{"Bad Username Chars", func(f *SignupInfoForm) { f.Username = "chirp user!" }, "username", MsgInvalidUsername},
		{"Missing Email", func(f *SignupInfoForm) { f.Email = "" }, "email", MsgRequired},
		{"Bad Email", func(f *SignupInfoForm) { f.Email = "not-an-email" }, "email", MsgInvalidEmail},
		{"Bad Phone", func(f *SignupInfoForm) { f.Phone = "12345" }, "phone", MsgInvalidPhone},
		{"Phone Without Country", func(f *SignupInfoForm) { f.Phone = "201-555-0123" }, "phone", MsgInvalidPhone},
		{"Missing Birth Date", func(f *SignupInfoForm) { f.BirthYear, f.BirthMonth, f.BirthDay = "", "", "" }, "date_of_birth", MsgRequired},
		{"Partial Birth Date", func(f *SignupInfoForm) { f.BirthDay = "" }, "date_of_birth", MsgInvalidDate},
		{"Impossible Birth Date", func(f *SignupInfoForm) { f.BirthMonth, f.BirthDay = "2", "30" }, "date_of_birth", MsgInvalidDate},
		{"Birth Year Out Of Range", func(f *SignupInfoForm) { f.BirthYear = "1850" }, "date_of_birth", MsgInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validInfo()
			tt.mutate(&f)
			_, fe := f.Validate(fixedNow)
			assert.Equal(t, []string{tt.msg}, fe[tt.field])
		})
	}
}

func TestUsernameAllowsLetters(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"José", "Zoë.ü", "山田_太郎", "ahmed+1@x", "user-٣"} {
		f := validInfo()
		f.Username = name
		_, fe := f.Validate(fixedNow)
		assert.False(t, fe.Has("username"), "%s: %v", name, fe["username"])
	}
	for _, name := range []string{"josé!", "a b", "tab\tname"} {
		f := validInfo()
		f.Username = name
		_, fe := f.Validate(fixedNow)
		assert.Equal(t, []string{MsgInvalidUsername}, fe["username"], name)
	}
}

func TestSignupInfoForm_ValidNormalizes(t *testing.T) {
	t.Parallel()
	f := validInfo()
	dob, fe := f.Validate(fixedNow)

	assert.True(t, fe.Empty())
	assert.Equal(t, "+12015550123", f.Phone)
	assert.Equal(t, "1990-02-14", f.DateOfBirth)
	assert.Equal(t, time.Date(1990, 2, 14, 0, 0, 0, 0, time.UTC), dob)
}

func TestSignupInfoForm_OptionalPhoneAndISODate(t *testing.T) {
	t.Parallel()
	f := SignupInfoForm{Username: "bob.b+1", Email: "bob@example.com", DateOfBirth: "1985-07-04"}
	_, fe := f.Validate(fixedNow)
	assert.True(t, fe.Empty())
	assert.Equal(t, "", f.Phone)
}

func TestTweetForm_Validate(t *testing.T) {
	t.Parallel()
	f := TweetForm{Body: "   "}
	assert.Equal(t, []string{MsgRequired}, f.Validate()["body"])

	f = TweetForm{Body: strings.Repeat("é", 281)}
	assert.Equal(t, []string{fmt.Sprintf(MsgMaxLength, "280", 281)}, f.Validate()["body"])

	f = TweetForm{Body: strings.Repeat("é", 280), ImageClear: "on"}
	assert.True(t, f.Validate().Empty())
	assert.True(t, f.ClearImage())
}

func TestProfileForm_Validate(t *testing.T) {
	t.Parallel()
	f := ProfileForm{Username: "chirpuser", Bio: strings.Repeat("b", 281)}
	fe := f.Validate()
	assert.Equal(t, []string{fmt.Sprintf(MsgMaxLength, "280", 281)}, fe["bio"])

	f = ProfileForm{Username: "chirpuser", Bio: ""}
	assert.True(t, f.Validate().Empty())
	assert.False(t, f.ClearAvatar())
}

func TestSigninAndResetForms(t *testing.T) {
	t.Parallel()
	s := SigninForm{}
	fe := s.Validate()
	assert.Equal(t, []string{MsgRequired}, fe["username"])
	assert.Equal(t, []string{MsgRequired}, fe["password"])

	r := PasswordResetForm{Email: "nope"}
	assert.Equal(t, []string{MsgInvalidEmail}, r.Validate()["email"])

	assert.NoError(t, ValidateEmail("alice@example.com"))
	assert.EqualError(t, ValidateEmail("alice"), MsgInvalidEmail)
}

func TestPhone(t *testing.T) {
	t.Parallel()
	assert.True(t, IsValidPhone("+442071838750"))
	assert.False(t, IsValidPhone("+999"))
	assert.False(t, IsValidPhone("hello"))
	assert.Equal(t, "+442071838750", NormalizePhone("+44 20 7183 8750"))
	assert.Equal(t, "", NormalizePhone(""))
}
