package validation

import (
	"github.com/nyaruka/phonenumbers"
)

// unknownRegion forces numbers to carry their own country code.
const unknownRegion = "ZZ"

// IsValidPhone reports whether s is a valid number in some region.
func IsValidPhone(s string) bool {
	num, err := phonenumbers.Parse(s, unknownRegion)
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(num)
}

// NormalizePhone returns s in E.164 form, or s unchanged if it does not parse.
func NormalizePhone(s string) string {
	if s == "" {
		return ""
	}
	num, err := phonenumbers.Parse(s, unknownRegion)
	if err != nil {
		return s
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
