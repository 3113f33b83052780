package identity

import "golang.org/x/crypto/bcrypt"

// BcryptHasher hashes passwords with bcrypt at the default cost.
type BcryptHasher struct{}

// Hash returns the bcrypt hash of plaintext.
func (BcryptHasher) Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plaintext matches the stored hash.
func (BcryptHasher) Verify(plaintext, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}
