package hash

import (
	"crypto/sha512"
	"encoding/base64"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt only accepts 72 bytes of input
const maxBcryptInput = 72

// input passes short passwords through unchanged and reduces longer ones to a
// base64 SHA-512 digest, so every byte still counts.
func input(password string) []byte {
	if len(password) <= maxBcryptInput {
		return []byte(password)
	}
	sum := sha512.Sum512([]byte(password))
	return []byte(base64.RawStdEncoding.EncodeToString(sum[:]))[:maxBcryptInput]
}

func HashPassword(password string) (string, error) {
	hashbytes, err := bcrypt.GenerateFromPassword(input(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hashbytes), nil
}

// CheckPassword compares in constant time; any malformed hash is a mismatch.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), input(password)) == nil
}

var dummyHash = sync.OnceValue(func() string {
	h, _ := HashPassword("not-a-real-account")
	return h
})

// Mismatch spends the same bcrypt work as CheckPassword and always fails. It
// stands in for the comparison when no account was found.
func Mismatch(password string) bool {
	CheckPassword(dummyHash(), password)
	return false
}
