package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// specialChars is the character set the signup form counts as special.
const specialChars = `!@#$%^&*(),.?":{}|<>`

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
// An empty hash (Google-created accounts) never matches.
func CheckPassword(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword applies the signup/reset password policy and returns one
// message per unmet rule, empty when the password passes.
func ValidatePassword(password string) []string {
	var problems []string
	if utf8.RuneCountInString(password) < 8 {
		problems = append(problems, "Password must be at least 8 characters long")
	}
	if !strings.ContainsFunc(password, unicode.IsUpper) {
		problems = append(problems, "Password must contain at least one uppercase letter")
	}
	if !strings.ContainsFunc(password, unicode.IsDigit) {
		problems = append(problems, "Password must contain at least one number")
	}
	if !strings.ContainsAny(password, specialChars) {
		problems = append(problems, "Password must contain at least one special character")
	}
	return problems
}

// StrengthResult is the password-strength endpoint payload.
type StrengthResult struct {
	Score    int      `json:"score"`
	Strength string   `json:"strength"`
	Feedback []string `json:"feedback"`
}

// PasswordStrength scores a candidate password 0-100, 25 points per rule
// (length, uppercase, number, special), with a hint for each missed rule.
func PasswordStrength(password string) *StrengthResult {
	result := &StrengthResult{Feedback: []string{}}

	if utf8.RuneCountInString(password) >= 8 {
		result.Score += 25
	} else {
		result.Feedback = append(result.Feedback, "Use at least 8 characters")
	}
	if strings.ContainsFunc(password, unicode.IsUpper) {
		result.Score += 25
	} else {
		result.Feedback = append(result.Feedback, "Add uppercase letters")
	}
	if strings.ContainsFunc(password, unicode.IsDigit) {
		result.Score += 25
	} else {
		result.Feedback = append(result.Feedback, "Add numbers")
	}
	if strings.ContainsAny(password, specialChars) {
		result.Score += 25
	} else {
		result.Feedback = append(result.Feedback, "Add special characters")
	}

	switch {
	case result.Score >= 100:
		result.Strength = "strong"
	case result.Score >= 75:
		result.Strength = "good"
	case result.Score >= 50:
		result.Strength = "medium"
	default:
		result.Strength = "weak"
	}
	return result
}
