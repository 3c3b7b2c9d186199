package security

import "regexp"

const (
	// MaxFieldLength is the longest name or email accepted from clients
	MaxFieldLength = 255
)

// emailPattern accepts local-part@domain.tld where the last label has at
// least two letters. Matching is case-insensitive by construction.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// IsValidEmail reports whether email matches the canonical address syntax
func IsValidEmail(email string) bool {
	return email != "" && emailPattern.MatchString(email)
}
