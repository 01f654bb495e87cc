package utils

import "golang.org/x/crypto/bcrypt"

// bcryptHashLen is the length of every encoded bcrypt hash.
const bcryptHashLen = 60

// HashSecret returns a bcrypt hash of the server's ticket secret. Every hash
// produced from the same secret verifies, so the value is not request specific.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckSecret reports whether token was hashed from secret. bcrypt ignores
// bytes past the encoded hash, so anything but an exact-length token fails.
func CheckSecret(token, secret string) bool {
	if len(token) != bcryptHashLen {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(token), []byte(secret)) == nil
}
