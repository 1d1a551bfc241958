package utils

import (
	"crypto/rand"
	"strconv"
)

const referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ReferralCodeLength is the length of generated referral codes.
const ReferralCodeLength = 8

// GenerateReferralCode returns a random uppercase alphanumeric code.
// Uniqueness is enforced by the database; callers retry on collision.
func GenerateReferralCode() (string, error) {
	buf := make([]byte, ReferralCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	for i, b := range buf {
		buf[i] = referralCodeAlphabet[int(b)%len(referralCodeAlphabet)]
	}
	return string(buf), nil
}

// IsNumeric checks if a string contains only digits
func IsNumeric(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}
