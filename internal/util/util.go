package util

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
)

const ShortIDLength = 8

// GetIDFromString returns the hex sha1 of str. Used for stable ids derived from URLs.
func GetIDFromString(str *string) string {
	hasher := sha1.New()
	hasher.Write([]byte(*str))

	return hex.EncodeToString(hasher.Sum(nil))
}

func GetShortIDFromString(str *string) string {
	return GetIDFromString(str)[:ShortIDLength]
}

// ContentHash is the ledger key of a payload.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)

	return hex.EncodeToString(sum[:])
}
