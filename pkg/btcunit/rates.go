// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package btcunit provides the fee rate and transaction size units used to
// price denomination outputs and inputs.
package btcunit

import (
	"math"
	"math/big"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
)

const (
	// kilo is a generic multiplier for kilo units.
	kilo = 1000

	// floatStringPrecision is the number of decimal places to use when
	// converting a fee rate to a string.
	floatStringPrecision = 3
)

// ZeroSatPerVByte is a fee rate of 0 sat/vb.
var ZeroSatPerVByte = NewSatPerVByte(0)

// baseFeeRate stores the canonical representation of a fee rate, which is
// satoshis per kilo-weight-unit (sat/kwu). The concrete fee rate types are
// derived from it so that a rate can be given in whichever unit the caller
// has at hand while fees are always computed the same way.
type baseFeeRate struct {
	satsPerKWU *big.Rat
}

// newBaseFeeRate creates a new baseFeeRate with the given numerator and
// denominator. A zero denominator yields a zero fee rate.
func newBaseFeeRate(numerator btcutil.Amount, denominator uint64) baseFeeRate {
	if denominator == 0 {
		return baseFeeRate{satsPerKWU: big.NewRat(0, 1)}
	}

	return baseFeeRate{satsPerKWU: big.NewRat(
		int64(numerator), safeUint64ToInt64(denominator),
	)}
}

// FeeForWeight calculates the fee resulting from this fee rate and the given
// weight. The result is rounded down to the satoshi.
func (f baseFeeRate) FeeForWeight(weightUnit WeightUnit) btcutil.Amount {
	// A nil rate only happens for the zero value of the exported types.
	if f.satsPerKWU == nil {
		return 0
	}

	fee := big.NewRat(0, 1)
	fee.Mul(f.satsPerKWU, big.NewRat(
		safeUint64ToInt64(weightUnit.wu), kilo,
	))

	quotient := big.NewInt(0)
	quotient.Div(fee.Num(), fee.Denom())

	return btcutil.Amount(quotient.Int64())
}

// FeeForVByte calculates the fee resulting from this fee rate and the given
// size in vbytes.
func (f baseFeeRate) FeeForVByte(vb VByte) btcutil.Amount {
	return f.FeeForWeight(vb.ToWU())
}

// IsZero reports whether the fee rate is zero or unset.
func (f baseFeeRate) IsZero() bool {
	return f.satsPerKWU == nil || f.satsPerKWU.Sign() == 0
}

// IsNegative reports whether the fee rate is below zero.
func (f baseFeeRate) IsNegative() bool {
	return f.satsPerKWU != nil && f.satsPerKWU.Sign() < 0
}

// equal returns true if the fee rate is equal to the other fee rate.
func (f baseFeeRate) equal(other baseFeeRate) bool {
	if f.IsZero() || other.IsZero() {
		return f.IsZero() == other.IsZero()
	}

	return f.satsPerKWU.Cmp(other.satsPerKWU) == 0
}

// SatPerVByte represents a fee rate in sat/vbyte. This is the unit coinjoin
// coordinators announce their mining fee rate in.
type SatPerVByte struct {
	baseFeeRate
}

// NewSatPerVByte creates a new fee rate in sat/vb.
func NewSatPerVByte(rate btcutil.Amount) SatPerVByte {
	return CalcSatPerVByte(rate, NewVByte(1))
}

// CalcSatPerVByte calculates the fee rate in sat/vb for a given fee and size.
func CalcSatPerVByte(fee btcutil.Amount, vb VByte) SatPerVByte {
	// (fee * 1000) / size_in_wu gives sat/kwu, the size in weight units
	// already accounts for the witness scale factor.
	return SatPerVByte{newBaseFeeRate(fee*kilo, vb.wu)}
}

// ToSatPerKVByte converts the fee rate to sat/kvb.
func (s SatPerVByte) ToSatPerKVByte() SatPerKVByte {
	return SatPerKVByte{s.baseFeeRate}
}

// String returns a human-readable string of the fee rate.
func (s SatPerVByte) String() string {
	if s.satsPerKWU == nil {
		return "0.000 sat/vb"
	}

	vbRate := big.NewRat(0, 1)
	vbRate.Mul(s.satsPerKWU,
		big.NewRat(blockchain.WitnessScaleFactor, kilo),
	)

	return vbRate.FloatString(floatStringPrecision) + " sat/vb"
}

// Equal returns true if the fee rate is equal to the other fee rate.
func (s SatPerVByte) Equal(other SatPerVByte) bool {
	return s.equal(other.baseFeeRate)
}

// SatPerKVByte represents a fee rate in sat/kvb.
type SatPerKVByte struct {
	baseFeeRate
}

// NewSatPerKVByte creates a new fee rate in sat/kvb.
func NewSatPerKVByte(rate btcutil.Amount) SatPerKVByte {
	return SatPerKVByte{newBaseFeeRate(rate*kilo, NewKVByte(1).wu)}
}

// ToSatPerVByte converts the fee rate to sat/vb.
func (s SatPerKVByte) ToSatPerVByte() SatPerVByte {
	return SatPerVByte{s.baseFeeRate}
}

// String returns a human-readable string of the fee rate.
func (s SatPerKVByte) String() string {
	if s.satsPerKWU == nil {
		return "0.000 sat/kvb"
	}

	kvbRate := big.NewRat(0, 1)
	kvbRate.Mul(s.satsPerKWU,
		big.NewRat(blockchain.WitnessScaleFactor, 1),
	)

	return kvbRate.FloatString(floatStringPrecision) + " sat/kvb"
}

// safeUint64ToInt64 converts a uint64 to an int64, capping at math.MaxInt64.
// The values converted here are transaction sizes which never get close to
// the cap.
func safeUint64ToInt64(u uint64) int64 {
	if u > math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(u)
}
