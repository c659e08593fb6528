package utils

import "golang.org/x/crypto/bcrypt"

// MaxPasswordBytes is the longest input bcrypt will hash.
const MaxPasswordBytes = 72

// PasswordFits reports whether plain is short enough for bcrypt.
func PasswordFits(plain string) bool { return len(plain) <= MaxPasswordBytes }

// HashPassword returns a bcrypt hash using the given cost.  Costs outside
// the range bcrypt accepts fall back to bcrypt.DefaultCost so a bad
// BCRYPT_COST cannot break registration.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares a bcrypt hash with a plain password in constant
// time.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
