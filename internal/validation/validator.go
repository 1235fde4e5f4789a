package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"chirper/internal/models"

	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report failures under the submitted form field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || IsValidPhone(s)
	})

	return v
}

// Check runs the struct's validate tags and translates failures into FieldErrors.
func Check(form any) models.FieldErrors {
	fe := models.FieldErrors{}
	err := validate.Struct(form)
	if err == nil {
		return fe
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fe.Add(models.NonFieldErrors, err.Error())
		return fe
	}
	for _, e := range verrs {
		fe.Add(e.Field(), message(e))
	}
	return fe
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return MsgRequired
	case "max":
		return fmt.Sprintf(MsgMaxLength, e.Param(), utf8.RuneCountInString(fmt.Sprint(e.Value())))
	case "email":
		return MsgInvalidEmail
	case "username":
		return MsgInvalidUsername
	case "phone":
		return MsgInvalidPhone
	}
	return fmt.Sprintf("Enter a valid value for %s.", e.Field())
}

// ValidateEmail checks email syntax.
func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return errors.New(MsgInvalidEmail)
	}
	return nil
}
