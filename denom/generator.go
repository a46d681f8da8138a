// Package denom builds the catalog of standard denominations participants
// decompose their coins into. Denominations are "round" amounts drawn from a
// handful of integer families so that independent participants end up
// registering identical output values.
package denom

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/coinmix/coin"
	"github.com/btcsuite/coinmix/txcost"
	"github.com/lightningnetwork/lnd/fn/v2"
)

var (
	// ErrNoScriptTypes is returned when no script type is allowed.
	ErrNoScriptTypes = errors.New("no script types allowed")

	// ErrTooManyScriptTypes is returned when more script types are
	// allowed than the generator can choose between.
	ErrTooManyScriptTypes = errors.New("at most two script types allowed")

	// ErrInvalidRange is returned when the amount range is empty or not
	// positive.
	ErrInvalidRange = errors.New("invalid denomination range")

	// ErrMissingRand is returned when a random choice is needed but no
	// generator was supplied.
	ErrMissingRand = errors.New("missing random generator")

	// ErrMissingModel is returned when no cost model was supplied.
	ErrMissingModel = errors.New("missing cost model")
)

// Family is an integer sequence Multiplier * Base^i for i = 0, 1, 2, ...
type Family struct {
	Base       int64
	Multiplier int64
}

// Families are the denomination families: powers of 2, powers of 3, twice the
// powers of 3 and the 1-2-5 decimal series.
var Families = []Family{
	{Base: 2, Multiplier: 1},
	{Base: 3, Multiplier: 1},
	{Base: 3, Multiplier: 2},
	{Base: 10, Multiplier: 1},
	{Base: 10, Multiplier: 2},
	{Base: 10, Multiplier: 5},
}

// String returns the family as a formula.
func (f Family) String() string {
	if f.Multiplier == 1 {
		return fmt.Sprintf("%d^i", f.Base)
	}

	return fmt.Sprintf("%d*%d^i", f.Multiplier, f.Base)
}

// Values returns the members of the family within [minAmount, maxAmount] in
// increasing order. Members below the minimum are skipped, the sequence ends
// at the first member above the maximum.
func (f Family) Values(minAmount, maxAmount btcutil.Amount) []btcutil.Amount {
	var values []btcutil.Amount
	if f.Base < 2 || f.Multiplier < 1 {
		return values
	}

	for v := f.Multiplier; v <= int64(maxAmount); v *= f.Base {
		if v >= int64(minAmount) {
			values = append(values, btcutil.Amount(v))
		}

		// Stop before the next step overflows.
		if v > math.MaxInt64/f.Base {
			break
		}
	}

	return values
}

// GeneratorConfig holds the parameters of the denomination catalog.
type GeneratorConfig struct {
	// MinAmount is the smallest output amount allowed in a round.
	MinAmount btcutil.Amount

	// MaxAmount is the largest output amount allowed in a round.
	MaxAmount btcutil.Amount

	// Model prices the denominations.
	Model *txcost.Model

	// ScriptTypes are the script types denominations may use. With a
	// single type every denomination uses it, with two a fair coin picks
	// one per denomination.
	ScriptTypes []txcost.ScriptType

	// Rand is the source of the script type coin flips.
	Rand *rand.Rand
}

// validate checks that the configuration can produce a catalog.
func (c *GeneratorConfig) validate() error {
	switch {
	case len(c.ScriptTypes) == 0:
		return ErrNoScriptTypes

	case len(c.ScriptTypes) > 2:
		return fmt.Errorf("%w: got %d", ErrTooManyScriptTypes,
			len(c.ScriptTypes))

	case c.MinAmount <= 0 || c.MaxAmount < c.MinAmount:
		return fmt.Errorf("%w: [%v, %v]", ErrInvalidRange, c.MinAmount,
			c.MaxAmount)

	case c.Model == nil:
		return ErrMissingModel

	case len(c.ScriptTypes) == 2 && c.Rand == nil:
		return ErrMissingRand
	}

	for _, st := range c.ScriptTypes {
		if !st.IsValid() {
			return fmt.Errorf("%w: %v", txcost.ErrUnsupportedScriptType,
				st)
		}
	}

	return nil
}

// nextScriptType returns the script type of the next denomination.
func (c *GeneratorConfig) nextScriptType() txcost.ScriptType {
	if len(c.ScriptTypes) == 1 {
		return c.ScriptTypes[0]
	}

	return c.ScriptTypes[c.Rand.IntN(2)]
}

// Generate creates the denomination catalog. The result holds every member
// of every family within the allowed range once per script type it was
// assigned and is sorted by effective amount, largest first.
func Generate(cfg GeneratorConfig) ([]coin.Output, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	denoms := fn.NewSet[coin.Output]()
	for _, family := range Families {
		for _, amount := range family.Values(cfg.MinAmount, cfg.MaxAmount) {
			denoms.Add(coin.FromDenomination(
				amount, cfg.nextScriptType(), cfg.Model,
			))
		}
	}

	catalog := denoms.ToSlice()
	SortByEffectiveAmount(catalog)

	return catalog, nil
}

// SortByEffectiveAmount sorts the outputs in place by effective amount,
// largest first. Ties are broken by face value and then script type so the
// order never depends on how the slice was built.
func SortByEffectiveAmount(outputs []coin.Output) {
	slices.SortFunc(outputs, func(a, b coin.Output) int {
		return cmp.Or(
			cmp.Compare(b.EffectiveAmount(), a.EffectiveAmount()),
			cmp.Compare(b.Amount, a.Amount),
			cmp.Compare(a.ScriptType, b.ScriptType),
		)
	})
}

// SortByEffectiveCost sorts the outputs in place by effective cost, largest
// first, with the same tie breaks as SortByEffectiveAmount.
func SortByEffectiveCost(outputs []coin.Output) {
	slices.SortFunc(outputs, func(a, b coin.Output) int {
		return cmp.Or(
			cmp.Compare(b.EffectiveCost(), a.EffectiveCost()),
			cmp.Compare(b.Amount, a.Amount),
			cmp.Compare(a.ScriptType, b.ScriptType),
		)
	})
}
