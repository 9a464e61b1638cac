package scenario

import (
	"net/url"
	"strings"
)

const (
	PlaceholderBaseURL  = "{{base_url}}"
	PlaceholderUsername = "{{username}}"
	PlaceholderPassword = "{{password}}"
	PlaceholderTOTP     = "{{totp}}"
)

// Credentials for login steps. Never serialized.
type Credentials struct {
	Username   string `json:"-" yaml:"-"`
	Password   string `json:"-" yaml:"-"`
	TOTPSecret string `json:"-" yaml:"-"`
}

// Resolver expands placeholders in step values.
type Resolver struct {
	BaseURL     string
	Credentials Credentials
	// TOTP generates a one-time code from the secret. Left nil, {{totp}} stays as-is.
	TOTP func(secret string) (string, error)
}

// Resolve substitutes every known placeholder in value.
func (r *Resolver) Resolve(value string) (string, error) {
	if !strings.Contains(value, "{{") {
		return value, nil
	}
	pairs := []string{
		PlaceholderBaseURL, r.BaseURL,
		PlaceholderUsername, r.Credentials.Username,
		PlaceholderPassword, r.Credentials.Password,
	}
	if strings.Contains(value, PlaceholderTOTP) && r.TOTP != nil {
		code, err := r.TOTP(r.Credentials.TOTPSecret)
		if err != nil {
			return "", err
		}
		pairs = append(pairs, PlaceholderTOTP, code)
	}
	return strings.NewReplacer(pairs...).Replace(value), nil
}

// URL resolves a scenario or navigate URL against the base URL.
// Absolute URLs (including about: and data: ones) pass through unchanged.
func (r *Resolver) URL(raw string) (string, error) {
	raw, err := r.Resolve(raw)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		return raw, nil
	}
	base, err := url.Parse(strings.TrimRight(r.BaseURL, "/") + "/")
	if err != nil {
		return "", err
	}
	return base.ResolveReference(u).String(), nil
}
