package promotion

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	// DefaultMaxUses is used when an admin does not choose the uses of a new code.
	DefaultMaxUses uint `yaml:"default_max_uses" default:"1"`

	// CodeLength is the number of characters of generated codes.
	CodeLength int `yaml:"code_length" default:"12"`

	// MasterCodeHash is the bcrypt hash of the master code, empty disables it.
	MasterCodeHash string `yaml:"master_code_hash" env:"INVITEGATE_MASTER_CODE_HASH"`

	// MaxFailedAttempts per user within FailedAttemptsWindowMinutes, 0 disables throttling.
	MaxFailedAttempts           int  `yaml:"max_failed_attempts" default:"5"`
	FailedAttemptsWindowMinutes uint `yaml:"failed_attempts_window_minutes" default:"10"`

	// PurgeExhaustedAfterDays enables the cleaner of exhausted codes, 0 keeps them forever.
	PurgeExhaustedAfterDays int `yaml:"purge_exhausted_after_days"`
}

const (
	minCodeLength = 6
	maxCodeLength = 64
)

func (c *Config) FailedAttemptsWindow() time.Duration {
	return time.Duration(c.FailedAttemptsWindowMinutes) * time.Minute
}

func (c *Config) Validate() {
	if c.DefaultMaxUses == 0 {
		logger.Fatal().Msg("PromotionConfig: DefaultMaxUses must be positive")
	}
	if c.CodeLength < minCodeLength || c.CodeLength > maxCodeLength {
		logger.Fatal().Msgf("PromotionConfig: CodeLength must be in [%d, %d]", minCodeLength, maxCodeLength)
	}
	if c.MasterCodeHash != "" {
		if _, err := bcrypt.Cost([]byte(c.MasterCodeHash)); err != nil {
			logger.Fatal().Err(err).Msg("PromotionConfig: MasterCodeHash is not a bcrypt hash")
		}
	} else {
		logger.Warn().Msg("PromotionConfig: MasterCodeHash is empty, master code is disabled")
	}
	if c.PurgeExhaustedAfterDays < 0 {
		logger.Fatal().Msg("PromotionConfig: PurgeExhaustedAfterDays must not be negative")
	}
}
