package auth

import (
	"reflect"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("Sup3r$ecret")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if !CheckPassword(hash, "Sup3r$ecret") {
		t.Fatalf("expected password to match its hash")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatalf("wrong password must not match")
	}
	if CheckPassword("", "anything") {
		t.Fatalf("empty stored hash must never match")
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		want     []string
	}{
		{
			name:     "valid",
			password: "Abcdef1!",
			want:     nil,
		},
		{
			name:     "too short",
			password: "Ab1!",
			want:     []string{"Password must be at least 8 characters long"},
		},
		{
			name:     "no uppercase",
			password: "abcdefg1!",
			want:     []string{"Password must contain at least one uppercase letter"},
		},
		{
			name:     "no number",
			password: "Abcdefgh!",
			want:     []string{"Password must contain at least one number"},
		},
		{
			name:     "no special",
			password: "Abcdefg1",
			want:     []string{"Password must contain at least one special character"},
		},
		{
			name:     "everything wrong",
			password: "abc",
			want: []string{
				"Password must be at least 8 characters long",
				"Password must contain at least one uppercase letter",
				"Password must contain at least one number",
				"Password must contain at least one special character",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidatePassword(tt.password)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ValidatePassword(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}

func TestPasswordStrength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		password     string
		wantScore    int
		wantStrength string
		wantFeedback []string
	}{
		{
			name:         "all rules met",
			password:     "Abcdef1!",
			wantScore:    100,
			wantStrength: "strong",
			wantFeedback: []string{},
		},
		{
			name:         "missing special",
			password:     "Abcdefg1",
			wantScore:    75,
			wantStrength: "good",
			wantFeedback: []string{"Add special characters"},
		},
		{
			name:         "short but mixed",
			password:     "Ab1!",
			wantScore:    75,
			wantStrength: "good",
			wantFeedback: []string{"Use at least 8 characters"},
		},
		{
			name:         "lowercase and digits only",
			password:     "abcdefg1",
			wantScore:    50,
			wantStrength: "medium",
			wantFeedback: []string{"Add uppercase letters", "Add special characters"},
		},
		{
			name:         "single rule",
			password:     "abc",
			wantScore:    0,
			wantStrength: "weak",
			wantFeedback: []string{
				"Use at least 8 characters",
				"Add uppercase letters",
				"Add numbers",
				"Add special characters",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PasswordStrength(tt.password)
			if got.Score != tt.wantScore {
				t.Fatalf("score = %d, want %d", got.Score, tt.wantScore)
			}
			if got.Strength != tt.wantStrength {
				t.Fatalf("strength = %q, want %q", got.Strength, tt.wantStrength)
			}
			if !reflect.DeepEqual(got.Feedback, tt.wantFeedback) {
				t.Fatalf("feedback = %v, want %v", got.Feedback, tt.wantFeedback)
			}
		})
	}
}
