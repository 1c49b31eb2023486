package account

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// Digest returns the stored form of password. Accounts without a salt keep
// the unsalted legacy digest so existing credentials continue to verify.
func Digest(password, salt string) string {
	in := password
	if salt != "" {
		in = password + ":" + salt
	}
	sum := md5.Sum([]byte(in))
	return hex.EncodeToString(sum[:])
}

// VerifyDigest reports whether password matches the stored digest.
func VerifyDigest(password, salt, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(Digest(password, salt)), []byte(digest)) == 1
}

func newSalt() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}
