package auction

import (
	"time"

	"golang.org/x/xerrors"
)

const (
	// DefaultDuration is the default lifetime of an auction.
	DefaultDuration = 7 * 24 * time.Hour

	// DefaultMaxComment is the default maximum length in bytes of the comment
	// of a bid.
	DefaultMaxComment = 280

	// DefaultContract is the default identity of the contract.
	DefaultContract = "sealbid"
)

// Config is the configuration of the ledger.
type Config struct {
	// Duration is the time between the creation of an auction and its
	// deadline.
	Duration time.Duration `yaml:"duration"`

	// MaxComment is the maximum length in bytes of a comment.
	MaxComment int `yaml:"maxcomment"`

	// Contract is the identity of the contract. It is implicitly granted every
	// sealed value and cannot be used as a principal.
	Contract string `yaml:"contract"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Duration:   DefaultDuration,
		MaxComment: DefaultMaxComment,
		Contract:   DefaultContract,
	}
}

// Validate returns an error if the configuration cannot be used.
func (c Config) Validate() error {
	if c.Duration <= 0 {
		return xerrors.Errorf("duration %v must be positive: %w", c.Duration, ErrValidation)
	}

	if c.MaxComment <= 0 {
		return xerrors.Errorf("maxcomment %d must be positive: %w", c.MaxComment, ErrValidation)
	}

	if c.Contract == "" {
		return xerrors.Errorf("contract identity is empty: %w", ErrValidation)
	}

	return nil
}
