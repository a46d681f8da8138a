package mixer

import (
	"slices"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/coinmix/coin"
	"github.com/btcsuite/coinmix/denom"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// thinningSpread is the extra divisor applied to the largest surviving
// denomination when thinning the frequency table. It fades out linearly
// towards the smallest one.
const thinningSpread = 0.5

// RoundState is the denomination table of one round. It is derived from the
// amounts of every participant and discarded with the round.
type RoundState struct {
	// BreakdownCap is the largest effective cost used to break amounts
	// down: the second largest amount of the round.
	BreakdownCap btcutil.Amount

	// Tallies counts how often each denomination was used across all
	// greedy breakdowns of the round.
	Tallies map[coin.Output]int

	// Denominations are the denominations participants may decompose
	// into, sorted by effective cost, largest first.
	Denominations []coin.Output
}

// NewRoundState builds the frequency table for the amounts against the
// catalog. minOutput and changeFee bound the greedy breakdown the same way
// they bound a decomposition.
func NewRoundState(amounts []btcutil.Amount, catalog []coin.Output,
	minOutput, changeFee btcutil.Amount) *RoundState {

	state := &RoundState{
		Tallies: make(map[coin.Output]int),
	}
	if len(amounts) == 0 {
		return state
	}

	// A single outlier must not dictate denominations nobody else can
	// match, so nothing above the runner-up amount is considered.
	sorted := slices.Clone(amounts)
	slices.Sort(sorted)
	slices.Reverse(sorted)
	state.BreakdownCap = sorted[min(1, len(sorted)-1)]

	breakdownDenoms := fn.Filter(catalog, func(d coin.Output) bool {
		return d.EffectiveCost() <= state.BreakdownCap
	})
	denom.SortByEffectiveCost(breakdownDenoms)

	for _, amount := range amounts {
		used, _ := BreakDown(amount, breakdownDenoms, minOutput, changeFee)
		for _, d := range used {
			state.Tallies[d]++
		}
	}

	var shared []coin.Output
	for d, tally := range state.Tallies {
		if tally > 1 {
			shared = append(shared, d)
		}
	}
	denom.SortByEffectiveCost(shared)

	state.Denominations = thin(shared)

	return state
}

// FilterDenominations returns the denominations of the catalog that the
// round's participants can share. It is a shorthand for building a
// RoundState and taking its denominations.
func FilterDenominations(amounts []btcutil.Amount, catalog []coin.Output,
	minOutput, changeFee btcutil.Amount) []coin.Output {

	return NewRoundState(amounts, catalog, minOutput, changeFee).Denominations
}

// BreakDown greedily decomposes amount into the denominations, which must be
// sorted by effective cost, largest first. It stops once the remainder could
// no longer pay for a minimum output plus change and returns the consumed
// denominations together with the remainder.
func BreakDown(amount btcutil.Amount, denoms []coin.Output, minOutput,
	changeFee btcutil.Amount) ([]coin.Output, btcutil.Amount) {

	var (
		used      []coin.Output
		remaining = amount
	)
	for _, d := range denoms {
		if d.Amount < minOutput || remaining < minOutput+changeFee {
			break
		}
		if d.EffectiveCost() <= 0 {
			continue
		}

		for d.EffectiveCost() <= remaining {
			used = append(used, d)
			remaining -= d.EffectiveCost()
		}
	}

	return used, remaining
}

// thin drops denominations that sit too close to a larger kept one. The
// first denomination is always kept, every later one only if it is at most
// the previously kept amount divided by a severity that shrinks from 1.5
// towards 1 along the list.
func thin(sorted []coin.Output) []coin.Output {
	if len(sorted) == 0 {
		return nil
	}

	increment := thinningSpread / float64(len(sorted))
	kept := make([]coin.Output, 0, len(sorted))

	for i, d := range sorted {
		severity := 1 + float64(len(sorted)-i)*increment
		if len(kept) == 0 {
			kept = append(kept, d)
			continue
		}

		last := kept[len(kept)-1]
		limit := btcutil.Amount(float64(last.Amount) / severity)
		if d.Amount <= limit {
			kept = append(kept, d)
		}
	}

	return kept
}
