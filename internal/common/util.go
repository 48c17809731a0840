package common

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// MakeRandHexString generates a random hexadecimal string of the given size.
// The size parameter specifies the number of random bytes to generate before
// encoding them as a hexadecimal string. As a result, the final string length
// will be twice the size (since each byte expands to two hex characters).
//
// It returns an error if the random number generator fails.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// MakeRandOTP generates a random numeric one-time password of the given
// number of digits. Leading zeros are allowed, so the result is always
// exactly length characters long.
func MakeRandOTP(length int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}

// FormatOTP inserts a space in the middle of a six-digit code so it reads
// in two groups ("123456" -> "123 456"). Codes of any other length are
// returned unchanged.
func FormatOTP(otp string) string {
	if len(otp) == 6 {
		return otp[:3] + " " + otp[3:]
	}
	return otp
}

// MaskEmail obscures an email address for display in API responses,
// keeping the first and last character of the local part and of the
// domain name ("john.doe@example.com" -> "j******e@e*****e.com").
// Segments of one or two characters collapse to the first character plus
// a single asterisk. Anything that does not look like an email is
// returned unchanged.
func MaskEmail(email string) string {
	if strings.Count(email, "@") != 1 {
		return email
	}
	at := strings.Index(email, "@")
	local, domain := email[:at], email[at+1:]
	dot := strings.LastIndex(domain, ".")
	if local == "" || dot <= 0 {
		return email
	}
	name, ext := domain[:dot], domain[dot+1:]
	return maskSegment(local) + "@" + maskSegment(name) + "." + ext
}

func maskSegment(s string) string {
	r := []rune(s)
	if len(r) <= 2 {
		return string(r[0]) + "*"
	}
	return string(r[0]) + strings.Repeat("*", len(r)-2) + string(r[len(r)-1])
}

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// This is useful for removing sensitive data such as passwords from memory
// after use.
//
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}
