package classroom

import (
	"crypto/rand"
	"math/big"
)

const (
	codeLength  = 7
	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// code collisions are retried this many times before giving up
	codeAttempts = 10
)

var codeGenFunc = generateCode // mockable

// generateCode returns a random join code of 7 characters in [A-Z0-9].
func generateCode() (string, error) {
	max := big.NewInt(int64(len(codeCharset)))
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[n.Int64()]
	}
	return string(code), nil
}

func isValidCode(code string) bool {
	if len(code) != codeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !(('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')) {
			return false
		}
	}
	return true
}
