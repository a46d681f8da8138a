package mixer

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/coinmix/coin"
	"github.com/btcsuite/coinmix/internal/prng"
	"github.com/btcsuite/coinmix/pkg/btcunit"
	"github.com/btcsuite/coinmix/txcost"
	"github.com/stretchr/testify/require"
)

// flatEstimator sizes every output and input the same regardless of script
// type.
type flatEstimator struct {
	in  int
	out map[txcost.ScriptType]int
}

func (f flatEstimator) InputVSize(txcost.ScriptType) int { return f.in }

func (f flatEstimator) OutputVSize(s txcost.ScriptType) int {
	return f.out[s]
}

// scenarioConfig returns a single script type config where every output
// costs 300 sats to create and 690 to spend at 10 sat/vb.
func scenarioConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxAllowedOutputAmount = btcutil.SatoshiPerBitcoin
	cfg.AllowedScriptTypes = []txcost.ScriptType{txcost.P2WPKH}
	cfg.Workers = 4
	cfg.Estimator = flatEstimator{
		in: 69,
		out: map[txcost.ScriptType]int{
			txcost.P2WPKH: 30,
			txcost.P2TR:   30,
		},
	}

	return cfg
}

// newTestMixer creates a Mixer with a fixed seed.
func newTestMixer(t testing.TB, cfg Config, seed uint64) *Mixer {
	m, err := New(cfg, prng.NewRand(prng.SeedFromUint64(seed), 0))
	require.NoError(t, err)

	return m
}

// denominations creates outputs with the given effective costs.
func denominations(m *Mixer, costs ...btcutil.Amount) []coin.Output {
	outputs := make([]coin.Output, len(costs))
	for i, c := range costs {
		outputs[i] = coin.FromAmount(c, txcost.P2WPKH, m.Model())
	}

	return outputs
}

// TestNew checks the catalog and change settings of a new Mixer.
func TestNew(t *testing.T) {
	t.Parallel()

	m := newTestMixer(t, scenarioConfig(), 1)
	require.Equal(t, txcost.P2WPKH, m.ChangeScriptType())
	require.Equal(t, btcutil.Amount(300), m.ChangeFee())
	require.Equal(t, btcutil.Amount(5_300), m.maxLeftover())

	catalog := m.Denominations()
	require.NotEmpty(t, catalog)
	for i, d := range catalog {
		require.GreaterOrEqual(t, d.Amount,
			DefaultMinAllowedOutputAmount)
		require.LessOrEqual(t, d.Amount,
			btcutil.Amount(btcutil.SatoshiPerBitcoin))
		if i > 0 {
			require.Greater(t, catalog[i-1].EffectiveAmount(),
				d.EffectiveAmount())
		}
	}

	// The returned catalog is a copy.
	catalog[0].Amount = 1
	require.NotEqual(t, btcutil.Amount(1), m.Denominations()[0].Amount)
}

// TestNewDeterministic checks that the catalog and change script type only
// depend on the seed.
func TestNewDeterministic(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	a := newTestMixer(t, cfg, 7)
	b := newTestMixer(t, cfg, 7)

	require.Equal(t, a.Denominations(), b.Denominations())
	require.Equal(t, a.ChangeScriptType(), b.ChangeScriptType())
}

// TestNewRandomSeed checks that a Mixer can be created without a generator.
func TestNewRandomSeed(t *testing.T) {
	t.Parallel()

	m, err := New(scenarioConfig(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, m.Denominations())
}

// TestConfigValidate checks that invalid round parameters are rejected.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		modify func(*Config)
	}{
		{
			name: "negative fee rate",
			modify: func(c *Config) {
				c.FeeRate = btcunit.NewSatPerVByte(-1)
			},
		},
		{
			name:   "zero min output",
			modify: func(c *Config) { c.MinAllowedOutputAmount = 0 },
		},
		{
			name:   "max below min",
			modify: func(c *Config) { c.MaxAllowedOutputAmount = 10 },
		},
		{
			name:   "no script types",
			modify: func(c *Config) { c.AllowedScriptTypes = nil },
		},
		{
			name: "unknown script type",
			modify: func(c *Config) {
				c.AllowedScriptTypes = []txcost.ScriptType{5}
			},
		},
		{
			name:   "zero tx vsize",
			modify: func(c *Config) { c.MaxTxVSize = 0 },
		},
		{
			name:   "zero workers",
			modify: func(c *Config) { c.Workers = 0 },
		},
		{
			name:   "zero max results",
			modify: func(c *Config) { c.MaxResults = 0 },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tc.modify(&cfg)
			require.Error(t, cfg.Validate())

			_, err := New(cfg, nil)
			require.Error(t, err)
		})
	}

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}
