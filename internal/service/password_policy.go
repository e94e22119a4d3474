package service

import (
	"fmt"
	"unicode"

	"github.com/vmq-next/internal/config"
)

type passwordPolicyError struct {
	msg string
}

func (e passwordPolicyError) Error() string {
	return e.msg
}

func (e passwordPolicyError) Is(target error) bool {
	return target == ErrWeakPassword
}

func validatePassword(policy config.PasswordPolicyConfig, password string) error {
	if policy.MinLength <= 0 &&
		!policy.RequireUpper &&
		!policy.RequireLower &&
		!policy.RequireNumber &&
		!policy.RequireSpecial {
		return nil
	}

	if policy.MinLength > 0 {
		if len([]rune(password)) < policy.MinLength {
			return passwordPolicyError{msg: fmt.Sprintf("密码长度不能少于 %d 位", policy.MinLength)}
		}
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasNumber = true
		default:
			hasSpecial = true
		}
	}

	if policy.RequireUpper && !hasUpper {
		return passwordPolicyError{msg: "密码需包含大写字母"}
	}
	if policy.RequireLower && !hasLower {
		return passwordPolicyError{msg: "密码需包含小写字母"}
	}
	if policy.RequireNumber && !hasNumber {
		return passwordPolicyError{msg: "密码需包含数字"}
	}
	if policy.RequireSpecial && !hasSpecial {
		return passwordPolicyError{msg: "密码需包含特殊字符"}
	}

	return nil
}
