package denom

import (
	"math"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/coinmix/coin"
	"github.com/btcsuite/coinmix/internal/prng"
	"github.com/btcsuite/coinmix/pkg/btcunit"
	"github.com/btcsuite/coinmix/txcost"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var testModel = txcost.NewModel(btcunit.NewSatPerVByte(10), nil)

// TestFamilyValues checks the members of single families.
func TestFamilyValues(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		family   Family
		min, max btcutil.Amount
		expected []btcutil.Amount
	}{
		{
			name:     "powers of two",
			family:   Family{Base: 2, Multiplier: 1},
			min:      1,
			max:      10,
			expected: []btcutil.Amount{1, 2, 4, 8},
		},
		{
			name:     "low values skipped",
			family:   Family{Base: 3, Multiplier: 2},
			min:      10,
			max:      200,
			expected: []btcutil.Amount{18, 54, 162},
		},
		{
			name:     "range inclusive",
			family:   Family{Base: 10, Multiplier: 5},
			min:      50,
			max:      5000,
			expected: []btcutil.Amount{50, 500, 5000},
		},
		{
			name:   "empty range",
			family: Family{Base: 10, Multiplier: 2},
			min:    3,
			max:    19,
		},
		{
			name:   "degenerate family",
			family: Family{Base: 1, Multiplier: 1},
			min:    1,
			max:    100,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.expected, tc.family.Values(tc.min, tc.max))
		})
	}
}

// TestFamilyValuesOverflow checks that a family near the int64 limit ends
// instead of wrapping around.
func TestFamilyValuesOverflow(t *testing.T) {
	t.Parallel()

	values := Family{Base: 10, Multiplier: 5}.Values(1, math.MaxInt64)
	require.Len(t, values, 19)
	require.Equal(t, btcutil.Amount(5_000_000_000_000_000_000),
		values[len(values)-1])
}

// TestGenerateSingleScriptType checks the full catalog for a small range.
func TestGenerateSingleScriptType(t *testing.T) {
	t.Parallel()

	catalog, err := Generate(GeneratorConfig{
		MinAmount:   5_000,
		MaxAmount:   100_000,
		Model:       testModel,
		ScriptTypes: []txcost.ScriptType{txcost.P2WPKH},
	})
	require.NoError(t, err)

	amounts := make([]btcutil.Amount, len(catalog))
	for i, d := range catalog {
		amounts[i] = d.Amount
		require.Equal(t, txcost.P2WPKH, d.ScriptType)
		require.Equal(t, btcutil.Amount(310), d.Fee)
	}

	require.Equal(t, []btcutil.Amount{
		100_000, 65_536, 59_049, 50_000, 39_366, 32_768, 20_000,
		19_683, 16_384, 13_122, 10_000, 8_192, 6_561, 5_000,
	}, amounts)
}

// TestGenerateTwoScriptTypes checks that coin flips are reproducible and
// that every retained value appears.
func TestGenerateTwoScriptTypes(t *testing.T) {
	t.Parallel()

	cfg := func() GeneratorConfig {
		return GeneratorConfig{
			MinAmount:   5_000,
			MaxAmount:   1_000_000,
			Model:       testModel,
			ScriptTypes: txcost.AllScriptTypes,
			Rand:        prng.NewRand(prng.SeedFromUint64(1), 0),
		}
	}

	a, err := Generate(cfg())
	require.NoError(t, err)
	b, err := Generate(cfg())
	require.NoError(t, err)
	require.Equal(t, a, b)

	seen := make(map[btcutil.Amount]struct{})
	for _, d := range a {
		require.True(t, d.ScriptType.IsValid())
		seen[d.Amount] = struct{}{}
	}
	for _, family := range Families {
		for _, v := range family.Values(5_000, 1_000_000) {
			require.Contains(t, seen, v)
		}
	}
}

// TestGenerateErrors checks configuration validation.
func TestGenerateErrors(t *testing.T) {
	t.Parallel()

	base := GeneratorConfig{
		MinAmount:   5_000,
		MaxAmount:   100_000,
		Model:       testModel,
		ScriptTypes: []txcost.ScriptType{txcost.P2TR},
	}

	testCases := []struct {
		name   string
		modify func(*GeneratorConfig)
		err    error
	}{
		{
			name:   "no script types",
			modify: func(c *GeneratorConfig) { c.ScriptTypes = nil },
			err:    ErrNoScriptTypes,
		},
		{
			name: "three script types",
			modify: func(c *GeneratorConfig) {
				c.ScriptTypes = []txcost.ScriptType{
					txcost.P2TR, txcost.P2WPKH, txcost.P2TR,
				}
			},
			err: ErrTooManyScriptTypes,
		},
		{
			name:   "inverted range",
			modify: func(c *GeneratorConfig) { c.MaxAmount = 1_000 },
			err:    ErrInvalidRange,
		},
		{
			name:   "zero minimum",
			modify: func(c *GeneratorConfig) { c.MinAmount = 0 },
			err:    ErrInvalidRange,
		},
		{
			name:   "missing model",
			modify: func(c *GeneratorConfig) { c.Model = nil },
			err:    ErrMissingModel,
		},
		{
			name: "coin flip without rand",
			modify: func(c *GeneratorConfig) {
				c.ScriptTypes = txcost.AllScriptTypes
			},
			err: ErrMissingRand,
		},
		{
			name: "unknown script type",
			modify: func(c *GeneratorConfig) {
				c.ScriptTypes = []txcost.ScriptType{9}
			},
			err: txcost.ErrUnsupportedScriptType,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := base
			tc.modify(&cfg)

			_, err := Generate(cfg)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

// TestSortByEffectiveCost checks ordering and tie breaks.
func TestSortByEffectiveCost(t *testing.T) {
	t.Parallel()

	zeroFee := txcost.NewModel(btcunit.ZeroSatPerVByte, nil)
	outputs := []coin.Output{
		coin.FromDenomination(10_000, txcost.P2TR, zeroFee),
		coin.FromDenomination(20_000, txcost.P2TR, zeroFee),
		coin.FromDenomination(10_000, txcost.P2WPKH, zeroFee),
	}

	SortByEffectiveCost(outputs)
	require.Equal(t, btcutil.Amount(20_000), outputs[0].Amount)
	require.Equal(t, txcost.P2WPKH, outputs[1].ScriptType)
	require.Equal(t, txcost.P2TR, outputs[2].ScriptType)
}

// TestGenerateProperties checks that the catalog stays within range, is
// free of duplicates and sorted, and that every family is increasing.
func TestGenerateProperties(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		minAmount := btcutil.Amount(
			rapid.Int64Range(1, 1_000_000).Draw(t, "min"),
		)
		maxAmount := minAmount + btcutil.Amount(
			rapid.Int64Range(0, 10_000_000_000).Draw(t, "span"),
		)
		seed := rapid.Uint64().Draw(t, "seed")

		catalog, err := Generate(GeneratorConfig{
			MinAmount:   minAmount,
			MaxAmount:   maxAmount,
			Model:       testModel,
			ScriptTypes: txcost.AllScriptTypes,
			Rand:        prng.NewRand(prng.SeedFromUint64(seed), 0),
		})
		require.NoError(t, err)

		seen := make(map[coin.Output]struct{}, len(catalog))
		for i, d := range catalog {
			require.GreaterOrEqual(t, d.Amount, minAmount)
			require.LessOrEqual(t, d.Amount, maxAmount)
			require.NotContains(t, seen, d)
			seen[d] = struct{}{}

			if i > 0 {
				require.GreaterOrEqual(t,
					catalog[i-1].EffectiveAmount(),
					d.EffectiveAmount())
			}
		}

		for _, family := range Families {
			values := family.Values(minAmount, maxAmount)
			for i := 1; i < len(values); i++ {
				require.Greater(t, values[i], values[i-1])
			}
		}
	})
}
