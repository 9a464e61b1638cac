package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "JBSWY3DPEHPK3PXP"

func TestGenerateAndValidate(t *testing.T) {
	code, err := GenerateTOTP(testSecret)
	require.NoError(t, err)
	assert.Len(t, code, 6)

	valid, err := ValidateTOTP(code, testSecret)
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = ValidateTOTP(code, "jbsw y3dp ehpk 3pxp")
	require.NoError(t, err)
	assert.True(t, valid, "secret is normalized")
}

func TestGenerateTOTPAt_Deterministic(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 10, 0, time.UTC)
	a, err := GenerateTOTPAt(testSecret, at)
	require.NoError(t, err)
	b, err := GenerateTOTPAt(testSecret, at.Add(15*time.Second))
	require.NoError(t, err)
	assert.Equal(t, a, b, "same 30s window")
}

func TestTOTPErrors(t *testing.T) {
	_, err := GenerateTOTP("")
	assert.Error(t, err)

	_, err = GenerateTOTP("not base32 !!")
	assert.Error(t, err)

	_, err = ValidateTOTP("", testSecret)
	assert.Error(t, err)

	_, err = ValidateTOTP("123456", "")
	assert.Error(t, err)
}

func TestNormalizeSecret(t *testing.T) {
	assert.Equal(t, "JBSWY3DPEHPK3PXP", NormalizeSecret("jbsw y3dp ehpk 3pxp"))
}

func TestCheckSecret(t *testing.T) {
	assert.NoError(t, CheckSecret(testSecret))
	assert.NoError(t, CheckSecret("jbsw y3dp ehpk 3pxp"))
	assert.Error(t, CheckSecret(""))
	assert.Error(t, CheckSecret("not base32!"))
}
