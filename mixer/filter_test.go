package mixer

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/coinmix/coin"
	"github.com/btcsuite/coinmix/pkg/btcunit"
	"github.com/btcsuite/coinmix/txcost"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestFilterScenario checks the frequency table of a three participant
// round.
func TestFilterScenario(t *testing.T) {
	t.Parallel()

	m := newTestMixer(t, scenarioConfig(), 1)
	catalog := denominations(m, 100_000, 50_000, 20_000, 10_000)

	state := NewRoundState(
		[]btcutil.Amount{120_000, 95_000, 50_000}, catalog, 5_000, 300,
	)

	// The largest denomination is above the runner-up amount and the
	// smallest one is never reached by a greedy breakdown.
	require.Equal(t, btcutil.Amount(95_000), state.BreakdownCap)
	require.Equal(t, map[coin.Output]int{
		catalog[1]: 4,
		catalog[2]: 3,
	}, state.Tallies)
	require.Equal(t, []coin.Output{catalog[1], catalog[2]},
		state.Denominations)

	require.Equal(t, state.Denominations, FilterDenominations(
		[]btcutil.Amount{50_000, 120_000, 95_000}, catalog, 5_000, 300,
	))
}

// TestFilterSingleUse checks that a denomination used once is dropped.
func TestFilterSingleUse(t *testing.T) {
	t.Parallel()

	m := newTestMixer(t, scenarioConfig(), 1)
	catalog := denominations(m, 50_000, 20_000, 10_000)

	state := NewRoundState(
		[]btcutil.Amount{60_000, 60_000, 20_000}, catalog, 5_000, 300,
	)
	require.Equal(t, 1, state.Tallies[catalog[1]])
	require.Equal(t, []coin.Output{catalog[0], catalog[2]},
		state.Denominations)
}

// TestFilterSingleParticipant checks that a lone amount caps its own
// breakdown, and that no amounts give an empty table.
func TestFilterSingleParticipant(t *testing.T) {
	t.Parallel()

	m := newTestMixer(t, scenarioConfig(), 1)
	catalog := denominations(m, 20_000, 10_000)

	state := NewRoundState(
		[]btcutil.Amount{40_000}, catalog, 5_000, 300,
	)
	require.Equal(t, btcutil.Amount(40_000), state.BreakdownCap)
	require.Equal(t, []coin.Output{catalog[0]}, state.Denominations)

	require.Empty(t, FilterDenominations(nil, catalog, 5_000, 300))
}

// TestBreakDown checks the greedy breakdown of single amounts.
func TestBreakDown(t *testing.T) {
	t.Parallel()

	m := newTestMixer(t, scenarioConfig(), 1)
	catalog := denominations(m, 50_000, 20_000, 10_000)

	testCases := []struct {
		name      string
		amount    btcutil.Amount
		used      []btcutil.Amount
		remaining btcutil.Amount
	}{
		{
			name:      "exact",
			amount:    120_000,
			used:      []btcutil.Amount{50_000, 50_000, 20_000},
			remaining: 0,
		},
		{
			name:      "stops below min plus change",
			amount:    95_000,
			used:      []btcutil.Amount{50_000, 20_000, 20_000},
			remaining: 5_000,
		},
		{
			name:      "remainder left for change",
			amount:    18_000,
			used:      []btcutil.Amount{10_000},
			remaining: 8_000,
		},
		{
			name:      "too small",
			amount:    5_299,
			remaining: 5_299,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			used, remaining := BreakDown(tc.amount, catalog, 5_000, 300)

			var costs []btcutil.Amount
			if len(used) > 0 {
				costs = effectiveCosts(used)
			}
			require.Equal(t, tc.used, costs)
			require.Equal(t, tc.remaining, remaining)
		})
	}
}

// TestThin checks the severity curve.
func TestThin(t *testing.T) {
	t.Parallel()

	model := txcost.NewModel(btcunit.ZeroSatPerVByte, nil)
	var sorted []coin.Output
	for _, a := range []btcutil.Amount{
		100_000, 90_000, 50_000, 45_000, 10_000,
	} {
		sorted = append(sorted, coin.FromDenomination(
			a, txcost.P2WPKH, model,
		))
	}

	kept := thin(sorted)
	require.Equal(t, []coin.Output{sorted[0], sorted[2], sorted[4]}, kept)
	require.Nil(t, thin(nil))
}

// TestFilterProperties checks that only shared denominations survive and
// that the result is sorted and drawn from the catalog.
func TestFilterProperties(t *testing.T) {
	t.Parallel()

	m := newTestMixer(t, DefaultConfig(), 3)
	catalog := m.Denominations()
	inCatalog := make(map[coin.Output]struct{}, len(catalog))
	for _, d := range catalog {
		inCatalog[d] = struct{}{}
	}

	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SliceOfN(
			rapid.Int64Range(0, 100_000_000), 1, 50,
		).Draw(t, "amounts")
		amounts := make([]btcutil.Amount, len(raw))
		for i, a := range raw {
			amounts[i] = btcutil.Amount(a)
		}

		state := m.NewRound(amounts)
		for i, d := range state.Denominations {
			require.Contains(t, inCatalog, d)
			require.Greater(t, state.Tallies[d], 1)
			require.LessOrEqual(t, d.EffectiveCost(),
				state.BreakdownCap)

			if i > 0 {
				prev := state.Denominations[i-1]
				require.Less(t, d.Amount, prev.Amount)
			}
		}
	})
}
