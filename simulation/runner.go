package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/coinmix/coin"
	"github.com/btcsuite/coinmix/internal/prng"
	"github.com/btcsuite/coinmix/mixer"
	"github.com/btcsuite/coinmix/pkg/btcunit"
	"github.com/btcsuite/coinmix/txcost"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/ticker"
)

const (
	// DefaultIterations is the default number of simulated rounds.
	DefaultIterations = 1

	// DefaultInputCount is the default number of inputs of a round.
	DefaultInputCount = 100

	// DefaultUserCount is the default number of participants of a round.
	DefaultUserCount = 30

	// DefaultRemixRatio is the default share of inputs of the remix
	// round that come out of the pre-mix round.
	DefaultRemixRatio = 0.3

	// DefaultProgressInterval is how often progress is logged.
	DefaultProgressInterval = 10 * time.Second
)

var (
	// ErrNoFeePaid is returned when a simulated coinjoin does not pay
	// any mining fee, which means value was created.
	ErrNoFeePaid = errors.New("transaction doesn't pay fees")

	// ErrSampleTooSmall is returned when the sample cannot fill a round.
	ErrSampleTooSmall = errors.New("sample too small")

	// ErrInvalidConfig is returned for a simulation config that cannot be
	// run.
	ErrInvalidConfig = errors.New("invalid simulation config")
)

// Config describes a simulation.
type Config struct {
	// Iterations is the number of pre-mix and remix round pairs.
	Iterations int

	// InputCount is the number of inputs of every round.
	InputCount int

	// UserCount is the number of participants of every round.
	UserCount int

	// RemixRatio is the share of remix round inputs taken from the
	// outputs of the pre-mix round.
	RemixRatio float64

	// Mixer holds the round parameters.
	Mixer mixer.Config

	// Seed makes a simulation reproducible. Zero picks a random seed.
	Seed uint64

	// ProgressInterval is how often progress is logged.
	ProgressInterval time.Duration
}

// DefaultConfig returns the default simulation.
func DefaultConfig() Config {
	return Config{
		Iterations:       DefaultIterations,
		InputCount:       DefaultInputCount,
		UserCount:        DefaultUserCount,
		RemixRatio:       DefaultRemixRatio,
		Mixer:            mixer.DefaultConfig(),
		ProgressInterval: DefaultProgressInterval,
	}
}

// Validate checks that the simulation can run.
func (c *Config) Validate() error {
	switch {
	case c.Iterations <= 0:
		return fmt.Errorf("%w: iterations %d must be positive",
			ErrInvalidConfig, c.Iterations)

	case c.UserCount <= 0 || c.InputCount < c.UserCount:
		return fmt.Errorf("%w: %d inputs for %d users", ErrInvalidConfig,
			c.InputCount, c.UserCount)

	case c.RemixRatio < 0 || c.RemixRatio > 1:
		return fmt.Errorf("%w: remix ratio %v not in [0, 1]",
			ErrInvalidConfig, c.RemixRatio)

	case c.ProgressInterval <= 0:
		return fmt.Errorf("%w: progress interval %v must be positive",
			ErrInvalidConfig, c.ProgressInterval)
	}

	return c.Mixer.Validate()
}

// Run simulates the configured number of round pairs on amounts drawn from
// the sample. Amounts too small to pay for their own input are dropped
// from the sample first.
func Run(ctx context.Context, cfg Config, sample []btcutil.Amount) ([]*Result,
	error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	model := txcost.NewModel(cfg.Mixer.FeeRate, cfg.Mixer.Estimator)
	inputFee := model.InputFee(txcost.P2WPKH)
	usable := fn.Filter(sample, func(a btcutil.Amount) bool {
		return a > inputFee
	})
	if dropped := len(sample) - len(usable); dropped > 0 {
		log.Infof("Dropped %d sample amounts not above the input fee %v",
			dropped, inputFee)
	}
	if len(usable) < cfg.InputCount {
		return nil, fmt.Errorf("%w: %d usable amounts for %d inputs",
			ErrSampleTooSmall, len(usable), cfg.InputCount)
	}

	seed, err := simulationSeed(cfg.Seed)
	if err != nil {
		return nil, err
	}

	t := ticker.New(cfg.ProgressInterval)
	t.Resume()
	defer t.Stop()

	results := make([]*Result, 0, cfg.Iterations)
	for i := 0; i < cfg.Iterations; i++ {
		select {
		case <-t.Ticks():
			log.Infof("Completed %d/%d iterations", i, cfg.Iterations)

		case <-ctx.Done():
			return nil, ctx.Err()

		default:
		}

		rng := prng.NewRand(seed, uint32(i))
		r, err := runIteration(ctx, &cfg, rng, usable)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}
		results = append(results, r)
	}

	log.Infof("Completed %d iterations", cfg.Iterations)

	return results, nil
}

// simulationSeed expands the configured seed or draws a random one.
func simulationSeed(seed uint64) ([]byte, error) {
	if seed != 0 {
		return prng.SeedFromUint64(seed), nil
	}

	return prng.RandomSeed()
}

// runIteration runs a pre-mix round on fresh sample amounts, then a remix
// round where part of the inputs are outputs of the pre-mix round.
func runIteration(ctx context.Context, cfg *Config, rng *rand.Rand,
	sample []btcutil.Amount) (*Result, error) {

	preMixer, err := mixer.New(cfg.Mixer, prng.FromRand(rng, 0))
	if err != nil {
		return nil, err
	}

	freshInputs := func(n int) []coin.Input {
		return fn.Map(
			RandomElements(rng, sample, n),
			func(a btcutil.Amount) coin.Input {
				return coin.NewInput(
					a, txcost.P2WPKH, preMixer.Model(),
				)
			},
		)
	}

	preGroups, err := RandomGroups(rng, freshInputs(cfg.InputCount),
		cfg.UserCount)
	if err != nil {
		return nil, err
	}
	preMix, err := preMixer.CompleteMix(ctx, preGroups)
	if err != nil {
		return nil, fmt.Errorf("pre-mix: %w", err)
	}

	remixCount := int(float64(cfg.InputCount) * cfg.RemixRatio)
	remixed := fn.Map(
		RandomElements(rng, flatten(preMix), remixCount),
		func(o coin.Output) coin.Input {
			return coin.NewInput(
				o.Amount, o.ScriptType, preMixer.Model(),
			)
		},
	)
	inputs := append(freshInputs(cfg.InputCount-remixCount), remixed...)

	inputGroups, err := RandomGroups(rng, inputs, cfg.UserCount)
	if err != nil {
		return nil, err
	}

	m, err := mixer.New(cfg.Mixer, prng.FromRand(rng, 1))
	if err != nil {
		return nil, err
	}
	outputGroups, err := m.CompleteMix(ctx, inputGroups)
	if err != nil {
		return nil, fmt.Errorf("remix: %w", err)
	}

	return newResult(m, inputGroups, outputGroups, len(remixed))
}

// newResult computes the statistics of a finished round.
func newResult(m *mixer.Mixer, inputGroups [][]coin.Input,
	outputGroups [][]coin.Output, remixed int) (*Result, error) {

	inputs := flatten(inputGroups)
	outputs := flatten(outputGroups)
	model := m.Model()

	inAmounts := fn.Map(inputGroups,
		func(g []coin.Input) []btcutil.Amount {
			return fn.Map(g, func(in coin.Input) btcutil.Amount {
				return in.Amount
			})
		},
	)
	outAmounts := fn.Map(outputGroups,
		func(g []coin.Output) []btcutil.Amount {
			return fn.Map(g, func(o coin.Output) btcutil.Amount {
				return o.Amount
			})
		},
	)
	inputAmounts := flatten(inAmounts)
	outputAmounts := flatten(outAmounts)

	r := &Result{
		Users:         len(inputGroups),
		Inputs:        len(inputs),
		RemixedInputs: remixed,
		Outputs:       len(outputs),
		Changes:       UniqueCount(outputAmounts),
		FeeOutputs:    coin.TotalOutputFees(outputs),
		InputAnonset:  AverageAnonset(inputAmounts),
		OutputAnonset: AverageAnonset(outputAmounts),
		AnonsetGain:   AnonsetGain(inAmounts, outAmounts),
		InputGroups:   inAmounts,
		OutputGroups:  outAmounts,
		TotalLeftover: m.Leftovers().Sum(),
	}
	r.MedianLeftover, r.HasMedian = m.Leftovers().Median()
	r.LargestLeftover = m.Leftovers().Max()

	var outputAmount btcutil.Amount
	for _, in := range inputs {
		r.InputAmount += in.Amount
		r.FeeInputs += in.Fee
		r.VSize += model.InputVSize(in.ScriptType)
	}
	for _, o := range outputs {
		outputAmount += o.Amount
		r.VSize += o.VSize(model)

		switch o.ScriptType {
		case txcost.P2TR:
			r.TaprootOutputs++
		case txcost.P2WPKH:
			r.P2WPKHOutputs++
		}
	}
	r.VSize += txcost.SharedOverheadVSize(len(inputs), len(outputs))
	r.BlockspaceEfficiency = BlockspaceEfficiency(
		r.AnonsetGain, r.Users, r.VSize,
	)

	if r.InputAmount <= outputAmount {
		return nil, fmt.Errorf("%w: in %v, out %v", ErrNoFeePaid,
			r.InputAmount, outputAmount)
	}
	r.TotalFee = r.InputAmount - outputAmount
	r.FeeRate = btcunit.CalcSatPerVByte(
		r.TotalFee, btcunit.NewVByte(uint64(r.VSize)),
	)

	log.Debugf("Round of %d users: %d inputs, %d outputs, %d changes, "+
		"fee %v at %v", r.Users, r.Inputs, r.Outputs, r.Changes,
		r.TotalFee, r.FeeRate)

	return r, nil
}
