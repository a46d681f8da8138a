package mixer

import (
	"fmt"
	"runtime"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/coinmix/decomposer"
	"github.com/btcsuite/coinmix/pkg/btcunit"
	"github.com/btcsuite/coinmix/txcost"
)

const (
	// DefaultFeeRate is the mining fee rate of a round in sat/vb.
	DefaultFeeRate = 10

	// DefaultMinAllowedOutputAmount is the smallest output a round
	// accepts.
	DefaultMinAllowedOutputAmount btcutil.Amount = 5_000

	// DefaultMaxAllowedOutputAmount is the largest output a round
	// accepts.
	DefaultMaxAllowedOutputAmount btcutil.Amount = 43_000 *
		btcutil.SatoshiPerBitcoin

	// DefaultMaxVSizeCredential is the most vbytes a single registered
	// input can pay for.
	DefaultMaxVSizeCredential = 255

	// maxOutputsPerParticipant is the most outputs a participant asks
	// for in a round.
	maxOutputsPerParticipant = decomposer.MaxTerms
)

// Config holds the round parameters of a Mixer.
type Config struct {
	// FeeRate is the mining fee rate the coinjoin targets.
	FeeRate btcunit.SatPerVByte

	// MinAllowedOutputAmount is the smallest output that may be
	// registered.
	MinAllowedOutputAmount btcutil.Amount

	// MaxAllowedOutputAmount is the largest output that may be
	// registered.
	MaxAllowedOutputAmount btcutil.Amount

	// AllowedScriptTypes are the output script types of the round, one or
	// two of them.
	AllowedScriptTypes []txcost.ScriptType

	// MaxResults caps the number of combinations a single decomposition
	// search may yield.
	MaxResults int

	// MaxBranches caps the fan-out of the decomposition search.
	MaxBranches int

	// MaxTxVSize is the virtual size limit of the coinjoin.
	MaxTxVSize int

	// MaxVSizeCredential is the most vbytes a single input can pay for.
	MaxVSizeCredential int

	// Workers is the number of participants decomposed concurrently.
	Workers int

	// Estimator sizes inputs and outputs. Nil selects the standard sizes.
	Estimator txcost.Estimator
}

// DefaultConfig returns the parameters of a standard round.
func DefaultConfig() Config {
	return Config{
		FeeRate:                btcunit.NewSatPerVByte(DefaultFeeRate),
		MinAllowedOutputAmount: DefaultMinAllowedOutputAmount,
		MaxAllowedOutputAmount: DefaultMaxAllowedOutputAmount,
		AllowedScriptTypes:     txcost.AllScriptTypes,
		MaxResults:             decomposer.DefaultMaxResults,
		MaxBranches:            decomposer.DefaultMaxBranches,
		MaxTxVSize:             txcost.MaxStandardTxVSize,
		MaxVSizeCredential:     DefaultMaxVSizeCredential,
		Workers:                runtime.NumCPU(),
	}
}

// Validate checks the config for values a Mixer cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.FeeRate.IsNegative():
		return fmt.Errorf("%w: negative fee rate %v", ErrInvalidConfig,
			c.FeeRate)

	case c.MinAllowedOutputAmount <= 0:
		return fmt.Errorf("%w: min output amount %v must be positive",
			ErrInvalidConfig, c.MinAllowedOutputAmount)

	case c.MaxAllowedOutputAmount < c.MinAllowedOutputAmount:
		return fmt.Errorf("%w: max output amount %v below min %v",
			ErrInvalidConfig, c.MaxAllowedOutputAmount,
			c.MinAllowedOutputAmount)

	case len(c.AllowedScriptTypes) == 0 || len(c.AllowedScriptTypes) > 2:
		return fmt.Errorf("%w: %d script types, need one or two",
			ErrInvalidConfig, len(c.AllowedScriptTypes))

	case c.MaxTxVSize <= 0 || c.MaxVSizeCredential <= 0:
		return fmt.Errorf("%w: max tx vsize %d, max vsize credential %d",
			ErrInvalidConfig, c.MaxTxVSize, c.MaxVSizeCredential)

	case c.Workers <= 0:
		return fmt.Errorf("%w: workers %d must be positive",
			ErrInvalidConfig, c.Workers)
	}

	for _, st := range c.AllowedScriptTypes {
		if !st.IsValid() {
			return fmt.Errorf("%w: %w", ErrInvalidConfig,
				txcost.ErrUnsupportedScriptType)
		}
	}

	return c.searchConfig().Validate()
}

// searchConfig returns the decomposition search caps.
func (c *Config) searchConfig() decomposer.Config {
	return decomposer.Config{
		MaxResults:  c.MaxResults,
		MaxBranches: c.MaxBranches,
	}
}
