package mixer

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/coinmix/coin"
	"github.com/btcsuite/coinmix/internal/prng"
	"github.com/btcsuite/coinmix/txcost"
	"golang.org/x/sync/errgroup"
)

// VSizeCredential returns the vsize each input of a round with totalInputs
// inputs may pay for: an equal share of the transaction size left after the
// shared overhead, capped at the configured maximum.
func (m *Mixer) VSizeCredential(totalInputs, totalOutputs int) int {
	if totalInputs <= 0 {
		return 0
	}

	overhead := txcost.SharedOverheadVSize(totalInputs, totalOutputs)
	share := (m.cfg.MaxTxVSize - overhead) / totalInputs

	return max(min(share, m.cfg.MaxVSizeCredential), 0)
}

// AvailableVSize returns the vsize a participant can spend on outputs: what
// the credentials of its inputs pay for minus the inputs themselves.
func (m *Mixer) AvailableVSize(inputs []coin.Input, credential int) int {
	var available int
	for _, in := range inputs {
		available += credential - m.model.InputVSize(in.ScriptType)
	}

	return max(available, 0)
}

// CompleteMix decomposes the inputs of every participant of a round. The
// denomination table is built once from all inputs and each participant is
// decomposed on its own generator derived from a single round seed, so the
// result only depends on the Mixer's generator and not on scheduling. The
// first error aborts the round and no leftover of it is logged.
func (m *Mixer) CompleteMix(ctx context.Context,
	groups [][]coin.Input) ([][]coin.Output, error) {

	var all []btcutil.Amount
	for _, group := range groups {
		all = append(all, coin.EffectiveValues(group)...)
	}
	if len(all) == 0 {
		return nil, ErrNoAmounts
	}

	credential := m.VSizeCredential(
		len(all), len(groups)*maxOutputsPerParticipant,
	)
	round := m.NewRound(all)

	log.Debugf("Mixing %d inputs of %d participants: vsize credential %d, "+
		"%d round denominations", len(all), len(groups), credential,
		len(round.Denominations))

	seed := m.childSeed()
	results := make([][]coin.Output, len(groups))
	leftovers := make([]btcutil.Amount, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Workers)
	for i, group := range groups {
		g.Go(func() error {
			rng := prng.NewRand(seed, uint32(i))
			d, err := m.decompose(
				gctx, rng, coin.EffectiveValues(group),
				round.Denominations,
				m.AvailableVSize(group, credential),
			)
			if err != nil {
				return fmt.Errorf("participant %d: %w", i, err)
			}
			results[i] = d.Outputs
			leftovers[i] = d.Leftover

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Only a completed round leaves its leftovers behind.
	for _, leftover := range leftovers {
		m.leftovers.Append(leftover)
	}

	return results, nil
}

// CompleteMixAmounts is CompleteMix for participants given as effective input
// amounts spent from P2WPKH outputs. It returns the face values of the
// outputs of every participant.
func (m *Mixer) CompleteMixAmounts(ctx context.Context,
	groups [][]btcutil.Amount) ([][]btcutil.Amount, error) {

	inputGroups := make([][]coin.Input, len(groups))
	for i, group := range groups {
		inputGroups[i] = make([]coin.Input, len(group))
		for j, amount := range group {
			inputGroups[i][j] = coin.Input{
				Amount:     amount,
				ScriptType: txcost.P2WPKH,
			}
		}
	}

	outputGroups, err := m.CompleteMix(ctx, inputGroups)
	if err != nil {
		return nil, err
	}

	amounts := make([][]btcutil.Amount, len(outputGroups))
	for i, outputs := range outputGroups {
		amounts[i] = make([]btcutil.Amount, len(outputs))
		for j, o := range outputs {
			amounts[i][j] = o.Amount
		}
	}

	return amounts, nil
}
