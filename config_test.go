package phoneconfirm_test

import (
	"testing"
	"time"

	phoneconfirm "github.com/goliatone/go-phoneconfirm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := phoneconfirm.DefaultConfig()

	assert.Equal(t, "phonenumber", cfg.Salt)
	assert.Equal(t, 900, cfg.ActivationTimeout)
	assert.Equal(t, 1, cfg.TokenPeriod)
	assert.Equal(t, 6, cfg.CodeLength)
	assert.Equal(t, 10, cfg.MaxConfirmations)
	assert.Equal(t, "Your confirmation code is %(code)s", cfg.SMSMessage)

	assert.Equal(t, 15*time.Minute, cfg.ActivationTTL())
	assert.Equal(t, 15*time.Minute, cfg.MatchWindow())
	assert.Equal(t, time.Hour, cfg.TokenPeriodDuration())

	assert.Error(t, cfg.Validate(), "secret key is required")
}

func TestConfigMatchWindowLegacyMinutes(t *testing.T) {
	cfg := testConfig()
	cfg.LegacyMinutesWindow = true

	assert.Equal(t, 900*time.Minute, cfg.MatchWindow())
	assert.Equal(t, 15*time.Minute, cfg.ActivationTTL(), "token expiry keeps using seconds")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*phoneconfirm.Config)
	}{
		{name: "empty salt", mutate: func(c *phoneconfirm.Config) { c.Salt = "" }},
		{name: "zero timeout", mutate: func(c *phoneconfirm.Config) { c.ActivationTimeout = 0 }},
		{name: "negative token period", mutate: func(c *phoneconfirm.Config) { c.TokenPeriod = -1 }},
		{name: "code too long", mutate: func(c *phoneconfirm.Config) { c.CodeLength = 19 }},
		{name: "zero max confirmations", mutate: func(c *phoneconfirm.Config) { c.MaxConfirmations = 0 }},
		{name: "empty message", mutate: func(c *phoneconfirm.Config) { c.SMSMessage = "" }},
	}

	require.NoError(t, testConfig().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigIsSilent(t *testing.T) {
	cfg := testConfig()
	assert.False(t, cfg.IsSilent(testPhone))

	cfg.SilentFilter = func(phone string) bool { return phone == testPhone }
	assert.True(t, cfg.IsSilent(testPhone))
	assert.False(t, cfg.IsSilent(testOtherPhone))
}

func TestLoadConfig(t *testing.T) {
	cfg, err := phoneconfirm.LoadConfig(map[string]any{
		"secret_key":        "from-file",
		"code_length":       8,
		"max_confirmations": 3,
		"from_number":       "+15550000000",
	})
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.SecretKey)
	assert.Equal(t, 8, cfg.CodeLength)
	assert.Equal(t, 3, cfg.MaxConfirmations)
	assert.Equal(t, "+15550000000", cfg.FromNumber)
	assert.Equal(t, phoneconfirm.DefaultSalt, cfg.Salt)
	assert.Equal(t, phoneconfirm.DefaultActivationTimeout, cfg.ActivationTimeout)

	_, err = phoneconfirm.LoadConfig(nil)
	assert.Error(t, err, "missing secret fails validation")

	_, err = phoneconfirm.LoadConfig(map[string]any{
		"secret_key":  "x",
		"code_length": 40,
	})
	assert.Error(t, err)
}

func TestResolveConfigLayers(t *testing.T) {
	loaded := phoneconfirm.Config{
		SecretKey:         "loaded-secret",
		ActivationTimeout: 600,
		DefaultRegion:     "GB",
	}
	runtime := phoneconfirm.Config{
		ActivationTimeout: 120,
		SilentFilter:      func(string) bool { return true },
	}

	cfg, err := phoneconfirm.ResolveConfig(phoneconfirm.DefaultConfig(), loaded, runtime)
	require.NoError(t, err)

	assert.Equal(t, "loaded-secret", cfg.SecretKey)
	assert.Equal(t, 120, cfg.ActivationTimeout)
	assert.Equal(t, "GB", cfg.DefaultRegion)
	assert.Equal(t, phoneconfirm.DefaultCodeLength, cfg.CodeLength)
	assert.Equal(t, phoneconfirm.DefaultSalt, cfg.Salt)
	require.NotNil(t, cfg.SilentFilter)
	assert.True(t, cfg.IsSilent(testPhone))

	_, err = phoneconfirm.ResolveConfig(phoneconfirm.DefaultConfig(), phoneconfirm.Config{}, phoneconfirm.Config{})
	assert.Error(t, err)
}
