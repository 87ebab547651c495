package form

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the wire format of date inputs.
const DateLayout = "2006-01-02"

var validate = validator.New()

var phoneChars = regexp.MustCompile(`^\+?[\d\s\-()]+$`)

// Required fails on an empty value.
func Required(msg string) Rule {
	return Rule{Message: msg, Test: func(v string, _ Values) bool {
		return v != ""
	}}
}

// MinLen fails when the value has fewer than n characters.
func MinLen(n int, msg string) Rule {
	return Rule{Message: msg, Test: func(v string, _ Values) bool {
		return utf8.RuneCountInString(v) >= n
	}}
}

// MaxLen fails when the value has more than n characters.
func MaxLen(n int, msg string) Rule {
	return Rule{Message: msg, Test: func(v string, _ Values) bool {
		return utf8.RuneCountInString(v) <= n
	}}
}

// Matches fails when the value does not match re.
func Matches(re *regexp.Regexp, msg string) Rule {
	return Rule{Message: msg, Test: func(v string, _ Values) bool {
		return re.MatchString(v)
	}}
}

// Email fails when the value is not an email address.
func Email(msg string) Rule {
	return Rule{Message: msg, Test: func(v string, _ Values) bool {
		return IsEmail(v)
	}}
}

// Phone fails when the value is not shaped like a phone number: an optional
// leading "+", digits with common separators, and 10 to 15 digits in total.
// The number itself is not verified.
func Phone(msg string) Rule {
	return Rule{Message: msg, Test: func(v string, _ Values) bool {
		return IsPhone(v)
	}}
}

// Date fails when the value is not a DateLayout date.
func Date(msg string) Rule {
	return Rule{Message: msg, Test: func(v string, _ Values) bool {
		_, err := time.Parse(DateLayout, v)
		return err == nil
	}}
}

// MinAge fails when the date in the value is less than years calendar years
// before now().
func MinAge(years int, now func() time.Time, msg string) Rule {
	return Rule{Message: msg, Test: func(v string, _ Values) bool {
		birth, err := time.Parse(DateLayout, v)
		if err != nil {
			return false
		}
		return AgeAt(birth, now()) >= years
	}}
}

// EqualsField fails when the value differs from the value of other.
func EqualsField(other, msg string) Rule {
	return Rule{Message: msg, Test: func(v string, all Values) bool {
		return v == all[other]
	}}
}

// Checked fails unless a checkbox value is set.
func Checked(msg string) Rule {
	return Rule{Message: msg, Test: func(v string, _ Values) bool {
		return IsChecked(v)
	}}
}

// ContainsUpper fails when the value has no uppercase letter.
func ContainsUpper(msg string) Rule {
	return Rule{Message: msg, Test: func(v string, _ Values) bool {
		return strings.IndexFunc(v, func(r rune) bool { return r >= 'A' && r <= 'Z' }) >= 0
	}}
}

// ContainsDigit fails when the value has no digit.
func ContainsDigit(msg string) Rule {
	return Rule{Message: msg, Test: func(v string, _ Values) bool {
		return strings.IndexFunc(v, func(r rune) bool { return r >= '0' && r <= '9' }) >= 0
	}}
}

// IsEmail reports whether v is an email address.
func IsEmail(v string) bool {
	return validate.Var(v, "required,email") == nil
}

// IsPhone reports whether v is shaped like a phone number.
func IsPhone(v string) bool {
	if !phoneChars.MatchString(v) {
		return false
	}
	n := len(Digits(v))
	return n >= 10 && n <= 15
}

// Digits strips everything but ASCII digits from v.
func Digits(v string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, v)
}

// IsChecked reports whether a checkbox value means "checked".
func IsChecked(v string) bool {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// AgeAt returns the age in whole years at now of someone born on birth. The
// age increments on the birthday itself.
func AgeAt(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	return years
}
