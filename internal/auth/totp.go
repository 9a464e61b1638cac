package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Codes match what authenticator apps produce by default.
var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// NormalizeSecret strips spaces and upper-cases a base32 secret as it is
// usually pasted from an enrollment page.
func NormalizeSecret(secret string) string {
	return strings.ToUpper(strings.ReplaceAll(secret, " ", ""))
}

// GenerateTOTP returns the current code for secret. It backs the {{totp}} placeholder.
func GenerateTOTP(secret string) (string, error) {
	return GenerateTOTPAt(secret, time.Now())
}

func GenerateTOTPAt(secret string, t time.Time) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("totp secret cannot be empty")
	}
	passcode, err := totp.GenerateCodeCustom(NormalizeSecret(secret), t.UTC(), totpOpts)
	if err != nil {
		return "", fmt.Errorf("failed to generate totp code: %w", err)
	}
	return passcode, nil
}

func ValidateTOTP(passcode, secret string) (bool, error) {
	if secret == "" {
		return false, fmt.Errorf("totp secret cannot be empty")
	}
	if passcode == "" {
		return false, fmt.Errorf("passcode cannot be empty")
	}
	valid, err := totp.ValidateCustom(passcode, NormalizeSecret(secret), time.Now().UTC(), totpOpts)
	if err != nil {
		return false, fmt.Errorf("failed to validate totp code: %w", err)
	}
	return valid, nil
}

// CheckSecret confirms secret decodes and that a freshly generated code
// validates against it.
func CheckSecret(secret string) error {
	code, err := GenerateTOTP(secret)
	if err != nil {
		return err
	}
	valid, err := ValidateTOTP(code, secret)
	if err != nil {
		return err
	}
	if !valid {
		return fmt.Errorf("generated totp code did not validate")
	}
	return nil
}
