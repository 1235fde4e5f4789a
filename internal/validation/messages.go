// Package validation holds the form rules applied before any entity is written.
package validation

// User-facing messages. Tests and clients match on these exact strings.
const (
	MsgRequired          = "This field is required."
	MsgMaxLength         = "Ensure this value has at most %s characters (it has %d)."
	MsgInvalidUsername   = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	MsgUsernameTaken     = "A user with that username already exists."
	MsgInvalidEmail      = "Enter a valid email address."
	MsgInvalidPhone      = "Enter a valid phone number."
	MsgInvalidDate       = "Enter a valid date."
	MsgPasswordTooShort  = "This password is too short. It must contain at least %d characters."
	MsgPasswordNumeric   = "This password is entirely numeric."
	MsgPasswordCommon    = "This password is too common."
	MsgPasswordSimilar   = "The password is too similar to the %s."
	MsgPasswordMismatch  = "The two password fields didn’t match."
	MsgInvalidImage      = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	MsgImageTooLarge     = "The uploaded file is too large."
	MsgInvalidLogin      = "Please enter a correct username and password. Note that both fields may be case-sensitive."
	MsgInvalidResetToken = "The password reset link was invalid, possibly because it has already been used."
)
