package whatsapp

import "strings"

// NormalizePhone reduces a phone number to its international digits, without
// a leading plus. A "00" international prefix is dropped. A national number
// with a single leading zero is rewritten with countryCode when one is given.
func NormalizePhone(phone, countryCode string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, "00"):
		digits = digits[2:]
	case strings.HasPrefix(digits, "0") && countryCode != "" && !strings.HasPrefix(strings.TrimSpace(phone), "+"):
		digits = countryCode + digits[1:]
	}

	// Some numbers arrive as +<cc>0<national>.
	if countryCode != "" && strings.HasPrefix(digits, countryCode+"0") {
		digits = countryCode + digits[len(countryCode)+1:]
	}
	return digits
}
