package phoneconfirm

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

const (
	DefaultSalt              = "phonenumber"
	DefaultActivationTimeout = 15 * 60
	DefaultTokenPeriod       = 1
	DefaultCodeLength        = 6
	DefaultMaxConfirmations  = 10
	DefaultSMSMessage        = "Your confirmation code is %(code)s"
)

// SilentFilter reports whether SMS delivery should be skipped for a phone number.
// It never prevents the confirmation record from being created.
type SilentFilter func(phoneNumber string) bool

// Config holds the deployment options for the confirmation lifecycle.
type Config struct {
	// Salt namespaces signed activation tokens.
	Salt string `koanf:"salt" mapstructure:"salt"`
	// SecretKey is the process wide signing secret.
	SecretKey string `koanf:"secret_key" mapstructure:"secret_key"`
	// ActivationTimeout is expressed in seconds.
	ActivationTimeout int `koanf:"activation_timeout" mapstructure:"activation_timeout"`
	// TokenPeriod is expressed in hours and only drives the reported expiration date.
	TokenPeriod      int    `koanf:"token_period" mapstructure:"token_period"`
	CodeLength       int    `koanf:"code_length" mapstructure:"code_length"`
	MaxConfirmations int    `koanf:"max_confirmations" mapstructure:"max_confirmations"`
	SMSMessage       string `koanf:"sms_message" mapstructure:"sms_message"`
	FromNumber       string `koanf:"from_number" mapstructure:"from_number"`
	// DefaultRegion is used to parse numbers without a leading country code, e.g. "US".
	DefaultRegion         string `koanf:"default_region" mapstructure:"default_region"`
	StrictPhoneValidation bool   `koanf:"strict_phone_validation" mapstructure:"strict_phone_validation"`
	// LegacyMinutesWindow reads ActivationTimeout as minutes when matching codes.
	LegacyMinutesWindow bool `koanf:"legacy_minutes_window" mapstructure:"legacy_minutes_window"`

	SilentFilter SilentFilter `koanf:"-" mapstructure:"-"`
}

// DefaultConfig returns the documented defaults. SecretKey is left empty on purpose
// and must be provided by the deployment.
func DefaultConfig() Config {
	return Config{
		Salt:              DefaultSalt,
		ActivationTimeout: DefaultActivationTimeout,
		TokenPeriod:       DefaultTokenPeriod,
		CodeLength:        DefaultCodeLength,
		MaxConfirmations:  DefaultMaxConfirmations,
		SMSMessage:        DefaultSMSMessage,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Salt, validation.Required),
		validation.Field(&c.SecretKey, validation.Required),
		validation.Field(&c.ActivationTimeout, validation.Required, validation.Min(1)),
		validation.Field(&c.TokenPeriod, validation.Required, validation.Min(1)),
		validation.Field(&c.CodeLength, validation.Required, validation.Min(1), validation.Max(18)),
		validation.Field(&c.MaxConfirmations, validation.Required, validation.Min(1)),
		validation.Field(&c.SMSMessage, validation.Required),
	)
}

// ActivationTTL is the lifetime of a signed activation token.
func (c Config) ActivationTTL() time.Duration {
	return time.Duration(c.ActivationTimeout) * time.Second
}

// MatchWindow is how far back code lookups by phone number reach.
func (c Config) MatchWindow() time.Duration {
	if c.LegacyMinutesWindow {
		return time.Duration(c.ActivationTimeout) * time.Minute
	}
	return c.ActivationTTL()
}

// TokenPeriodDuration is the period used for the reported expiration date.
func (c Config) TokenPeriodDuration() time.Duration {
	return time.Duration(c.TokenPeriod) * time.Hour
}

// IsSilent applies the configured silent filter.
func (c Config) IsSilent(phoneNumber string) bool {
	if c.SilentFilter == nil {
		return false
	}
	return c.SilentFilter(phoneNumber)
}

// LoadConfig decodes raw values on top of DefaultConfig and validates the result.
func LoadConfig(raw map[string]any) (Config, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(DefaultConfig()),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ResolveConfig merges defaults < loaded < runtime. Zero values in the loaded
// and runtime layers do not override lower layers. The silent filter is taken
// from the highest layer that sets one.
func ResolveConfig(defaults, loaded, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("phoneconfirm: options stack build failed: %w", err)
	}

	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("phoneconfirm: options merge failed: %w", err)
	}

	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}

	for _, layer := range []Config{defaults, loaded, runtime} {
		if layer.SilentFilter != nil {
			resolved.SilentFilter = layer.SilentFilter
		}
	}

	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}

	setString := func(key, value string) {
		if includeZero || strings.TrimSpace(value) != "" {
			layer[key] = value
		}
	}
	setInt := func(key string, value int) {
		if includeZero || value != 0 {
			layer[key] = value
		}
	}
	setBool := func(key string, value bool) {
		if includeZero || value {
			layer[key] = value
		}
	}

	setString("salt", cfg.Salt)
	setString("secret_key", cfg.SecretKey)
	setInt("activation_timeout", cfg.ActivationTimeout)
	setInt("token_period", cfg.TokenPeriod)
	setInt("code_length", cfg.CodeLength)
	setInt("max_confirmations", cfg.MaxConfirmations)
	setString("sms_message", cfg.SMSMessage)
	setString("from_number", cfg.FromNumber)
	setString("default_region", cfg.DefaultRegion)
	setBool("strict_phone_validation", cfg.StrictPhoneValidation)
	setBool("legacy_minutes_window", cfg.LegacyMinutesWindow)

	return layer
}
