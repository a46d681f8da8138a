package simulation

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"
)

// testSample returns a spread of amounts between 0.0005 and 0.5 BTC.
func testSample() []btcutil.Amount {
	sample := make([]btcutil.Amount, 0, 60)
	for i := 1; i <= 60; i++ {
		sample = append(sample, btcutil.Amount(i*i)*13_900)
	}

	return sample
}

// testConfig returns a small reproducible simulation.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Iterations = 2
	cfg.InputCount = 20
	cfg.UserCount = 6
	cfg.Seed = 7
	cfg.Mixer.MaxAllowedOutputAmount = btcutil.SatoshiPerBitcoin
	cfg.Mixer.Workers = 2

	return cfg
}

// TestRun checks the statistics of simulated rounds.
func TestRun(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	results, err := Run(context.Background(), cfg, testSample())
	require.NoError(t, err)
	require.Len(t, results, cfg.Iterations)

	for _, r := range results {
		require.Equal(t, cfg.UserCount, r.Users)
		require.Equal(t, cfg.InputCount, r.Inputs)
		require.Equal(t, 6, r.RemixedInputs)
		require.Positive(t, r.Outputs)
		require.Equal(t, r.Outputs, r.TaprootOutputs+r.P2WPKHOutputs)
		require.LessOrEqual(t, r.Changes, r.Outputs)
		require.Positive(t, r.TotalFee)
		require.GreaterOrEqual(t, r.TotalFee,
			r.FeeInputs+r.FeeOutputs)
		require.GreaterOrEqual(t, r.InputAnonset, 1.0)
		require.GreaterOrEqual(t, r.OutputAnonset, 1.0)
		require.True(t, r.HasMedian)
		require.Positive(t, r.AnonsetGain)
		require.Positive(t, r.BlockspaceEfficiency)
		require.Len(t, r.InputGroups, cfg.UserCount)
		require.Len(t, r.OutputGroups, cfg.UserCount)
		require.LessOrEqual(t, r.LargestLeftover, r.TotalLeftover)
	}
}

// TestRunDeterministic checks that a seeded simulation can be replayed.
func TestRunDeterministic(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	first, err := Run(context.Background(), cfg, testSample())
	require.NoError(t, err)

	cfg.Mixer.Workers = 1
	second, err := Run(context.Background(), cfg, testSample())
	require.NoError(t, err)

	require.Equal(t, first, second)
}

// TestRunErrors checks configs and samples that cannot be simulated.
func TestRunErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		mutate func(*Config)
		sample []btcutil.Amount
		err    error
	}{
		{
			name:   "no iterations",
			mutate: func(c *Config) { c.Iterations = 0 },
			sample: testSample(),
			err:    ErrInvalidConfig,
		},
		{
			name:   "more users than inputs",
			mutate: func(c *Config) { c.UserCount = 21 },
			sample: testSample(),
			err:    ErrInvalidConfig,
		},
		{
			name:   "remix ratio above one",
			mutate: func(c *Config) { c.RemixRatio = 1.5 },
			sample: testSample(),
			err:    ErrInvalidConfig,
		},
		{
			name:   "sample too small",
			mutate: func(*Config) {},
			sample: testSample()[:10],
			err:    ErrSampleTooSmall,
		},
		{
			name:   "sample below input fee",
			mutate: func(*Config) {},
			sample: []btcutil.Amount{
				1, 2, 3, 4, 5, 6, 7, 8, 9, 10,
				11, 12, 13, 14, 15, 16, 17, 18, 19, 20,
			},
			err: ErrSampleTooSmall,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig()
			tc.mutate(&cfg)

			_, err := Run(context.Background(), cfg, tc.sample)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

// TestRunCancelled checks that a cancelled context stops the simulation.
func TestRunCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, testConfig(), testSample())
	require.ErrorIs(t, err, context.Canceled)
}
