package voting

import (
	"crypto/rand"
	"crypto/sha512"
	"math/big"
)

const (
	passwordAlphabet = "abcdefghijklmnopqrstuvwxyz" +
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
		"1234567890-_"
	passwordLength = 16
)

// GenerateVoterPassword mints the random secret handed to an
// anonymous voter after email verification. 16 symbols from a
// 64-symbol alphabet gives 96 bits of entropy.
func GenerateVoterPassword() (string, error) {
	secret := make([]byte, passwordLength)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range secret {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		secret[i] = passwordAlphabet[n.Int64()]
	}
	return string(secret), nil
}

// HashVoterPassword returns the unsalted SHA-512 digest stored for an
// anonymous voter. The digest is the lookup key, so it must be
// deterministic per password.
func HashVoterPassword(password string) []byte {
	digest := sha512.Sum512([]byte(password))
	return digest[:]
}
