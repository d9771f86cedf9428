// Package phonenumber provides an optional phone number that is stored as
// text in SQL columns and as a string in JSON.
package phonenumber

import (
	"database/sql"
	"database/sql/driver"
	"encoding"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/nyaruka/phonenumbers"
)

// Compile-time interface checks.
var (
	_ sql.Scanner              = (*PhoneNumber)(nil)
	_ driver.Valuer            = PhoneNumber{}
	_ json.Marshaler           = PhoneNumber{}
	_ json.Unmarshaler         = (*PhoneNumber)(nil)
	_ encoding.TextMarshaler   = PhoneNumber{}
	_ encoding.TextUnmarshaler = (*PhoneNumber)(nil)
	_ fmt.Stringer             = PhoneNumber{}
)

// defaultCountryCode is prepended to numbers written without one.
const defaultCountryCode = "+1"

var cleaner = strings.NewReplacer("-", "", "(", "", ")", "", " ", "")

// PhoneNumber is a parsed phone number, or unset. The zero value is unset.
type PhoneNumber struct {
	num *phonenumbers.PhoneNumber
}

// New wraps an already parsed number. A nil num yields an unset PhoneNumber.
func New(num *phonenumbers.PhoneNumber) PhoneNumber {
	return PhoneNumber{num: num}
}

// Parse parses s. Blank input yields an unset PhoneNumber. Dashes,
// parentheses, and spaces are ignored, and numbers without a leading '+'
// are read as North American numbers.
//
// Example:
//
//	p, err := phonenumber.Parse("(415) 555-2671")
//	p.String() // "+1 415-555-2671"
func Parse(s string) (PhoneNumber, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return PhoneNumber{}, nil
	}

	cleaned := cleaner.Replace(s)
	if !strings.HasPrefix(trimmed, "+") {
		cleaned = defaultCountryCode + cleaned
	}

	num, err := phonenumbers.Parse(cleaned, "")
	if err != nil {
		return PhoneNumber{}, fmt.Errorf("invalid phone number `%s`: %w", cleaned, err)
	}
	return PhoneNumber{num: num}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) PhoneNumber {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// IsSet reports whether p holds a number.
func (p PhoneNumber) IsSet() bool {
	return p.num != nil
}

// Number returns the underlying parsed number, or nil when unset.
func (p PhoneNumber) Number() *phonenumbers.PhoneNumber {
	return p.num
}

// String formats p in international format, or "" when unset.
func (p PhoneNumber) String() string {
	if p.num == nil {
		return ""
	}
	return phonenumbers.Format(p.num, phonenumbers.INTERNATIONAL)
}

// Equal reports whether p and other format to the same number.
func (p PhoneNumber) Equal(other PhoneNumber) bool {
	return p.String() == other.String()
}

// Scan implements sql.Scanner for text columns. NULL and blank text scan
// as unset.
func (p *PhoneNumber) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*p = PhoneNumber{}
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("phonenumber: cannot scan %T", src)
	}

	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Value implements driver.Valuer. An unset number is stored as "".
func (p PhoneNumber) Value() (driver.Value, error) {
	return p.String(), nil
}

// MarshalText implements encoding.TextMarshaler.
func (p PhoneNumber) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PhoneNumber) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalJSON implements json.Marshaler. An unset number encodes as null.
func (p PhoneNumber) MarshalJSON() ([]byte, error) {
	if p.num == nil {
		return []byte("null"), nil
	}
	return json.Marshal(p.String())
}

// UnmarshalJSON implements json.Unmarshaler. null and "" decode as unset.
func (p *PhoneNumber) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = PhoneNumber{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("phonenumber: %w", err)
	}
	return p.UnmarshalText([]byte(s))
}
