// Package mixer decomposes the inputs of coinjoin participants into shared
// standard denominations. A Mixer owns the denomination catalog of a fee rate
// and amount range, scores candidate decompositions by what they cost the
// participant and picks one at random among the near-best, then verifies that
// no value was created or silently lost.
package mixer

import (
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/coinmix/coin"
	"github.com/btcsuite/coinmix/denom"
	"github.com/btcsuite/coinmix/internal/prng"
	"github.com/btcsuite/coinmix/txcost"
)

// Mixer holds the immutable denomination catalog of a round configuration
// and the log of leftovers of every decomposition it made. It is safe for
// concurrent use.
type Mixer struct {
	cfg   Config
	model *txcost.Model

	// denominations is sorted by effective amount, largest first, and
	// never modified after construction.
	denominations []coin.Output

	changeScriptType txcost.ScriptType
	changeFee        btcutil.Amount

	leftovers LeftoverLog

	// rngMu guards rng. Decompositions draw their own generators from it
	// so that the shared stream is only touched briefly.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a Mixer for the round parameters. Every random choice the
// Mixer makes is drawn from rng. A nil rng selects a generator seeded from
// the operating system.
func New(cfg Config, rng *rand.Rand) (*Mixer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if rng == nil {
		seed, err := prng.RandomSeed()
		if err != nil {
			return nil, err
		}
		rng = prng.NewRand(seed, 0)
	}

	model := txcost.NewModel(cfg.FeeRate, cfg.Estimator)
	denominations, err := denom.Generate(denom.GeneratorConfig{
		MinAmount:   cfg.MinAllowedOutputAmount,
		MaxAmount:   cfg.MaxAllowedOutputAmount,
		Model:       model,
		ScriptTypes: cfg.AllowedScriptTypes,
		Rand:        rng,
	})
	if err != nil {
		return nil, err
	}

	changeScriptType := cfg.AllowedScriptTypes[0]
	if len(cfg.AllowedScriptTypes) > 1 {
		changeScriptType = cfg.AllowedScriptTypes[rng.IntN(2)]
	}

	log.Debugf("Created mixer with %d denominations at %v, change script "+
		"type %v", len(denominations), cfg.FeeRate, changeScriptType)

	return &Mixer{
		cfg:              cfg,
		model:            model,
		denominations:    denominations,
		changeScriptType: changeScriptType,
		changeFee:        model.OutputFee(changeScriptType),
		rng:              rng,
	}, nil
}

// Config returns the round parameters of the Mixer.
func (m *Mixer) Config() Config {
	return m.cfg
}

// Model returns the cost model the Mixer prices outputs with.
func (m *Mixer) Model() *txcost.Model {
	return m.model
}

// Denominations returns a copy of the catalog, sorted by effective amount,
// largest first.
func (m *Mixer) Denominations() []coin.Output {
	return slices.Clone(m.denominations)
}

// ChangeScriptType returns the script type of change outputs.
func (m *Mixer) ChangeScriptType() txcost.ScriptType {
	return m.changeScriptType
}

// ChangeFee returns the fee for creating a change output.
func (m *Mixer) ChangeFee() btcutil.Amount {
	return m.changeFee
}

// Leftovers returns the log of values left unallocated by the Mixer's
// decompositions.
func (m *Mixer) Leftovers() *LeftoverLog {
	return &m.leftovers
}

// NewRound builds the denomination table for a round with the given
// effective input amounts.
func (m *Mixer) NewRound(amounts []btcutil.Amount) *RoundState {
	return NewRoundState(
		amounts, m.denominations, m.cfg.MinAllowedOutputAmount,
		m.changeFee,
	)
}

// RoundDenominations returns the denominations participants of a round with
// the given effective input amounts may decompose into.
func (m *Mixer) RoundDenominations(amounts []btcutil.Amount) []coin.Output {
	return m.NewRound(amounts).Denominations
}

// maxLeftover is the largest value a decomposition may forfeit.
func (m *Mixer) maxLeftover() btcutil.Amount {
	return m.cfg.MinAllowedOutputAmount + m.model.OutputFee(txcost.P2TR)
}

// childSeed draws a seed for a new generator from the shared one.
func (m *Mixer) childSeed() []byte {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()

	return prng.SeedFrom(m.rng)
}
