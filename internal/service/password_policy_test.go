package service

import (
	"errors"
	"testing"

	"github.com/vmq-next/internal/config"
)

func TestValidatePassword(t *testing.T) {
	strict := config.PasswordPolicyConfig{
		MinLength:      8,
		RequireUpper:   true,
		RequireLower:   true,
		RequireNumber:  true,
		RequireSpecial: true,
	}
	cases := []struct {
		name     string
		policy   config.PasswordPolicyConfig
		password string
		wantErr  string
	}{
		{name: "empty policy", policy: config.PasswordPolicyConfig{}, password: "a"},
		{name: "too short", policy: strict, password: "Aa1!", wantErr: "密码长度不能少于 8 位"},
		{name: "no upper", policy: strict, password: "abcdef1!", wantErr: "密码需包含大写字母"},
		{name: "no lower", policy: strict, password: "ABCDEF1!", wantErr: "密码需包含小写字母"},
		{name: "no number", policy: strict, password: "Abcdefg!", wantErr: "密码需包含数字"},
		{name: "no special", policy: strict, password: "Abcdefg1", wantErr: "密码需包含特殊字符"},
		{name: "strong", policy: strict, password: "Abcdef1!"},
		{name: "unicode length", policy: config.PasswordPolicyConfig{MinLength: 3}, password: "密码好"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePassword(tc.policy, tc.password)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tc.wantErr {
				t.Fatalf("error want %q got %v", tc.wantErr, err)
			}
			if !errors.Is(err, ErrWeakPassword) {
				t.Fatalf("error should match ErrWeakPassword")
			}
		})
	}
}

func TestSaveRejectsWeakPassword(t *testing.T) {
	ts := newTestServices(t, "weak_password")
	ts.settings.SetPasswordPolicy(config.PasswordPolicyConfig{MinLength: 10})

	err := ts.settings.Save(map[string]string{"pass": "short"})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("weak password should be rejected, got %v", err)
	}
	if _, _, err := ts.auth.Login("admin", "secret"); err != nil {
		t.Fatalf("old password should remain valid, got %v", err)
	}

	if err := ts.settings.Save(map[string]string{"pass": "long-enough-pass"}); err != nil {
		t.Fatalf("strong password should be saved, got %v", err)
	}
	if _, _, err := ts.auth.Login("admin", "long-enough-pass"); err != nil {
		t.Fatalf("new password login failed: %v", err)
	}
}
