// Package config loads service configuration from the environment and an
// optional .env file.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	signingKeySize = 16

	defaultJWTTTL = 7 * 24 * time.Hour
)

type Config struct {
	HTTPAddr    string `mapstructure:"HTTP_ADDR"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// IsDebug lets registration pick an arbitrary role.
	IsDebug bool `mapstructure:"IS_DEBUG"`

	BcryptRounds int `mapstructure:"BCRYPT_ROUNDS"`

	// JWTKey is 16 raw bytes or base64 of any length. Empty means a random
	// per-process key.
	JWTKey string `mapstructure:"JWT_KEY"`
	// JWTTTL is the full session token lifetime in seconds.
	JWTTTL int64 `mapstructure:"JWT_TTL"`

	GoogleClientID     string        `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleCertsURL     string        `mapstructure:"GOOGLE_CERTS_URL"`
	GoogleCertsTimeout time.Duration `mapstructure:"GOOGLE_CERTS_TIMEOUT"`

	MFAIssuer string `mapstructure:"MFA_ISSUER"`

	SigningKey []byte `mapstructure:"-"`
}

// Load reads .env when present, then the process environment. Environment
// variables win over .env entries.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("IS_DEBUG", false)
	v.SetDefault("BCRYPT_ROUNDS", 12)
	v.SetDefault("JWT_KEY", "")
	v.SetDefault("JWT_TTL", int64(defaultJWTTTL/time.Second))
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CERTS_URL", "https://www.googleapis.com/oauth2/v1/certs")
	v.SetDefault("GOOGLE_CERTS_TIMEOUT", "5s")
	v.SetDefault("MFA_ISSUER", "KKP")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.BcryptRounds < 4 || cfg.BcryptRounds > 31 {
		return nil, errors.New("config: BCRYPT_ROUNDS must be between 4 and 31")
	}
	if cfg.JWTTTL <= 0 {
		return nil, errors.New("config: JWT_TTL must be positive")
	}
	if cfg.GoogleCertsTimeout <= 0 {
		return nil, errors.New("config: GOOGLE_CERTS_TIMEOUT must be positive")
	}

	key, err := DecodeSigningKey(cfg.JWTKey)
	if err != nil {
		return nil, err
	}
	cfg.SigningKey = key

	return &cfg, nil
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTTTL) * time.Second
}

// DecodeSigningKey turns JWT_KEY into the HS256 secret. A 16 byte value is
// used verbatim, anything else must be base64. An empty value yields a
// random key, so tokens do not survive a restart.
func DecodeSigningKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		key := make([]byte, signingKeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("config: generate JWT_KEY: %w", err)
		}
		return key, nil
	}
	if len(raw) == signingKeySize {
		return []byte(raw), nil
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("config: JWT_KEY is neither 16 bytes nor base64: %w", err)
	}
	if len(key) == 0 {
		return nil, errors.New("config: JWT_KEY decodes to an empty key")
	}
	return key, nil
}
