package client

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override values read by LoadConfig.
const (
	EnvAPIKey         = "RD_API_KEY"
	EnvAPISecretKey   = "RD_API_SECRET_KEY"
	EnvAuthToken      = "RD_AUTH_TOKEN"
	EnvDevelopment    = "RD_DEVELOPMENT"
	EnvDevelopmentURL = "RD_DEVELOPMENT_URL"
	EnvTimeout        = "RD_TIMEOUT"
	EnvMaxRetries     = "RD_MAX_RETRIES"
)

// Config holds client settings in a form that can be kept in a YAML file.
//
//	apiKey: abc
//	apiSecretKey: s3cret
//	development: true
//	timeout: 15s
//	maxRetries: 2
type Config struct {
	APIKey         string        `yaml:"apiKey"`
	APISecretKey   string        `yaml:"apiSecretKey"`
	AuthToken      string        `yaml:"authToken"`
	Development    bool          `yaml:"development"`
	DevelopmentURL string        `yaml:"developmentUrl"`
	BaseURL        string        `yaml:"baseUrl"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     *int          `yaml:"maxRetries"`
}

// LoadConfig reads path, if non-empty, and applies RD_* environment
// overrides. Unknown keys in the file are an error.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("rentdynamics: opening config: %w", err)
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("rentdynamics: parsing config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvAPIKey); ok {
		c.APIKey = v
	}
	if v, ok := os.LookupEnv(EnvAPISecretKey); ok {
		c.APISecretKey = v
	}
	if v, ok := os.LookupEnv(EnvAuthToken); ok {
		c.AuthToken = v
	}
	if v, ok := os.LookupEnv(EnvDevelopmentURL); ok {
		c.DevelopmentURL = v
	}
	if v, ok := os.LookupEnv(EnvDevelopment); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &ValidationError{Field: EnvDevelopment, Message: err.Error()}
		}
		c.Development = b
	}
	if v, ok := os.LookupEnv(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &ValidationError{Field: EnvTimeout, Message: err.Error()}
		}
		c.Timeout = d
	}
	if v, ok := os.LookupEnv(EnvMaxRetries); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return &ValidationError{Field: EnvMaxRetries, Message: fmt.Sprintf("invalid retry count %q", v)}
		}
		c.MaxRetries = &n
	}
	return nil
}

// Options converts the config into client options. Zero values leave the
// client defaults in place.
func (c Config) Options() []Option {
	opts := []Option{
		WithCredentials(c.APIKey, c.APISecretKey),
		WithDevelopment(c.Development),
	}
	if c.AuthToken != "" {
		opts = append(opts, WithAuthToken(c.AuthToken))
	}
	if c.DevelopmentURL != "" {
		opts = append(opts, WithDevelopmentURL(c.DevelopmentURL))
	}
	if c.BaseURL != "" {
		opts = append(opts, WithBaseURL(c.BaseURL))
	}
	if c.Timeout > 0 {
		opts = append(opts, WithTimeout(c.Timeout))
	}
	if c.MaxRetries != nil {
		opts = append(opts, WithMaxRetries(*c.MaxRetries))
	}
	return opts
}

// NewClientFromConfig creates a Client from cfg. opts are applied after the
// config, so they take precedence.
func NewClientFromConfig(cfg Config, opts ...Option) *Client {
	return NewClient(append(cfg.Options(), opts...)...)
}
