package extraction

import "fmt"

// ValidateThaiID reports whether id is a well-formed Thai national ID:
// exactly 13 ASCII digits whose last digit matches the weighted checksum of
// the first twelve.
func ValidateThaiID(id string) bool {
	if len(id) != IdentifierLength || !isASCIIDigits(id) {
		return false
	}
	check, err := CheckDigit(id[:IdentifierLength-1])
	if err != nil {
		return false
	}
	return check == int(id[IdentifierLength-1]-'0')
}

// CheckDigit computes the check digit for a 12-digit payload.
// Weights run from 13 down to 2; the digit is (11 - sum mod 11) mod 10.
func CheckDigit(payload string) (int, error) {
	if len(payload) != IdentifierLength-1 || !isASCIIDigits(payload) {
		return 0, fmt.Errorf("payload must be %d digits, got %q", IdentifierLength-1, payload)
	}
	total := 0
	for i := 0; i < len(payload); i++ {
		total += int(payload[i]-'0') * (IdentifierLength - i)
	}
	return (11 - total%11) % 10, nil
}

func isASCIIDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
