package mixer

import (
	"cmp"
	"context"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/coinmix/coin"
	"github.com/btcsuite/coinmix/decomposer"
	"github.com/btcsuite/coinmix/denom"
	"github.com/btcsuite/coinmix/internal/prng"
	"github.com/btcsuite/coinmix/txcost"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Decomposition is the outcome of decomposing one participant's inputs.
type Decomposition struct {
	// Outputs are the outputs the participant registers, largest first
	// unless the greedy baseline was picked.
	Outputs []coin.Output

	// Cost is the score of the picked candidate: the value it forfeits
	// plus the fees for creating and later spending its outputs.
	Cost btcutil.Amount

	// Loss is the value the greedy baseline could not place into any
	// output. It sets how close to the input sum the search must get.
	Loss btcutil.Amount

	// Leftover is the input sum minus the effective cost of Outputs.
	Leftover btcutil.Amount

	// HasChange is true if an output is not one of the round's
	// denominations.
	HasChange bool

	// Candidates is the number of distinct candidates that were scored.
	Candidates int
}

// candidate is one scored way to decompose a participant's inputs.
type candidate struct {
	outputs []coin.Output
	cost    btcutil.Amount

	// hasChange is set when an output is not a round denomination.
	hasChange bool

	// mixed is set when outputs of more than one script type are used.
	mixed bool
}

// candidateSet collects candidates keyed by their sorted output amounts. The
// first candidate registered under a key wins.
type candidateSet struct {
	denoms fn.Set[coin.Output]
	keys   fn.Set[string]
	list   []*candidate
}

func newCandidateSet(denoms []coin.Output) *candidateSet {
	return &candidateSet{
		denoms: fn.NewSet(denoms...),
		keys:   fn.NewSet[string](),
	}
}

// add registers the outputs with the cost unless an equivalent candidate is
// already known.
func (s *candidateSet) add(outputs []coin.Output, cost btcutil.Amount) {
	key := coin.SortKey(outputs)
	if s.keys.Contains(key) {
		return
	}
	s.keys.Add(key)

	s.list = append(s.list, &candidate{
		outputs:   outputs,
		cost:      cost,
		hasChange: !fn.All(outputs, s.denoms.Contains),
		mixed: fn.Any(outputs, isScriptType(txcost.P2WPKH)) &&
			fn.Any(outputs, isScriptType(txcost.P2TR)),
	})
}

func isScriptType(st txcost.ScriptType) func(coin.Output) bool {
	return func(o coin.Output) bool {
		return o.ScriptType == st
	}
}

// Decompose splits a participant's effective input amounts into outputs drawn
// from the round's filtered denominations, plus at most one change output,
// within a vsize budget. The result is fully checked against the fund
// conservation invariants; a violation is returned as an *InvariantError and
// means the round must be aborted.
func (m *Mixer) Decompose(ctx context.Context, myAmounts []btcutil.Amount,
	filtered []coin.Output, availableVSize int) (*Decomposition, error) {

	rng := prng.NewRand(m.childSeed(), 0)

	d, err := m.decompose(ctx, rng, myAmounts, filtered, availableVSize)
	if err != nil {
		return nil, err
	}
	m.leftovers.Append(d.Leftover)

	return d, nil
}

// decompose is Decompose with an explicit generator so that concurrent
// participants each draw from their own stream. The leftover is not logged,
// the caller records it once the decomposition is final.
func (m *Mixer) decompose(ctx context.Context, rng *rand.Rand,
	myAmounts []btcutil.Amount, filtered []coin.Output,
	availableVSize int) (*Decomposition, error) {

	if len(myAmounts) == 0 {
		return nil, ErrNoAmounts
	}

	var mySum btcutil.Amount
	for _, a := range myAmounts {
		if a < 0 {
			return nil, fmt.Errorf("%w: %v", ErrNegativeAmount, a)
		}
		mySum += a
	}

	denoms := slices.Clone(filtered)
	denom.SortByEffectiveCost(denoms)

	candidates := newCandidateSet(denoms)

	naive, loss := m.naiveDecomposition(mySum, denoms, availableVSize)
	candidates.add(naive, loss+coin.TotalFees(naive))

	err := m.searchDecompositions(
		ctx, mySum, loss, denoms, availableVSize, candidates,
	)
	if err != nil {
		return nil, err
	}

	picked := m.pick(rng, candidates.list)

	leftover, err := m.checkInvariants(mySum, picked.outputs, availableVSize)
	if err != nil {
		return nil, err
	}

	log.Debugf("Decomposed %v into %d outputs out of %d candidates "+
		"(cost=%v, leftover=%v)", mySum, len(picked.outputs),
		len(candidates.list), picked.cost, leftover)
	log.Tracef("Picked outputs: %v", spewClosure(picked.outputs))

	return &Decomposition{
		Outputs:    picked.outputs,
		Cost:       picked.cost,
		Loss:       loss,
		Leftover:   leftover,
		HasChange:  picked.hasChange,
		Candidates: len(candidates.list),
	}, nil
}

// maxOutputs returns how many outputs of the smallest allowed script type
// fit the vsize budget, capped at the most a participant may register.
func (m *Mixer) maxOutputs(availableVSize int) int {
	smallest := m.model.SmallestOutputVSize(m.cfg.AllowedScriptTypes...)

	return min(availableVSize/smallest, maxOutputsPerParticipant)
}

// naiveDecomposition greedily consumes the denominations, always leaving
// room for a change output, and turns what is left into change if it is
// worth an output. It returns the outputs and the value that could not be
// placed into any of them.
func (m *Mixer) naiveDecomposition(mySum btcutil.Amount,
	denoms []coin.Output, availableVSize int) ([]coin.Output,
	btcutil.Amount) {

	minOutput := m.cfg.MinAllowedOutputAmount
	changeVSize := m.model.OutputVSize(m.changeScriptType)
	maxDenoms := m.maxOutputs(availableVSize) - 1

	var outputs []coin.Output
	remaining, remainingVSize := mySum, availableVSize

out:
	for _, d := range denoms {
		if d.Amount > remaining || d.EffectiveCost() <= 0 {
			continue
		}

		for d.EffectiveCost() <= remaining {
			// Only go on if both this denomination and a possible
			// change output still fit.
			if remaining < minOutput+m.changeFee ||
				remainingVSize < d.VSize(m.model)+changeVSize ||
				len(outputs) >= maxDenoms {

				break out
			}

			outputs = append(outputs, d)
			remaining -= d.EffectiveCost()
			remainingVSize -= d.VSize(m.model)
		}
	}

	var loss btcutil.Amount
	switch {
	case remaining >= minOutput+m.changeFee && remainingVSize >= changeVSize:
		outputs = append(outputs, coin.FromAmount(
			remaining, m.changeScriptType, m.model,
		))

	default:
		// Paid to the miners.
		loss = remaining

		// Nothing fit at all, the whole sum becomes change as long as
		// it pays for itself.
		if len(outputs) == 0 && remaining > m.changeFee &&
			remainingVSize >= changeVSize {

			outputs = append(outputs, coin.FromAmount(
				remaining, m.changeScriptType, m.model,
			))
		}
	}

	return outputs, loss
}

// searchDecompositions registers the combinations of denominations that get
// close to the input sum. Combinations over the vsize budget or leaving more
// than a change output's worth behind are skipped.
func (m *Mixer) searchDecompositions(ctx context.Context,
	mySum, loss btcutil.Amount, denoms []coin.Output, availableVSize int,
	candidates *candidateSet) error {

	maxOutputs := m.maxOutputs(availableVSize)
	if maxOutputs <= 1 {
		return nil
	}

	minOutput := m.cfg.MinAllowedOutputAmount
	tolerance := max(loss, (minOutput+m.changeFee)/2)

	// The search works on effective costs, several denominations may
	// share one. The first, i.e. the one listed first for the round,
	// stands for all of them.
	var (
		catalog []int64
		byCost  = make(map[int64]coin.Output)
	)
	for _, d := range denoms {
		cost := int64(d.EffectiveCost())
		if d.Amount > mySum || cost <= 0 {
			continue
		}
		if _, ok := byCost[cost]; ok {
			continue
		}
		byCost[cost] = d
		catalog = append(catalog, cost)
	}
	if len(catalog) > decomposer.MaxCatalogSize {
		catalog = catalog[:decomposer.MaxCatalogSize]
	}

	req := decomposer.Request{
		Target:    int64(mySum),
		Tolerance: int64(tolerance),
		MaxCount:  maxOutputs,
		Catalog:   catalog,
	}

	return decomposer.Search(ctx, m.cfg.searchConfig(), req,
		func(r decomposer.Result) bool {
			outputs := fn.Map(r.Values(catalog), func(v int64) coin.Output {
				return byCost[v]
			})

			if coin.TotalVSize(outputs, m.model) > availableVSize {
				return true
			}

			total := coin.TotalEffectiveCost(outputs)
			if mySum-total >= minOutput+m.changeFee {
				return true
			}

			candidates.add(outputs, mySum-total+coin.TotalFees(outputs))

			return true
		},
	)
}

// pick orders the candidates by cost, then prefers ones without change and
// ones mixing script types, and picks at random among those within 20% of
// the best cost. The largest output value is drawn first, the candidate
// second, so that many similar candidates do not crowd out the rest.
func (m *Mixer) pick(rng *rand.Rand, candidates []*candidate) *candidate {
	ordered := slices.Clone(candidates)
	rng.Shuffle(len(ordered), func(i, j int) {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	})

	slices.SortStableFunc(ordered, func(a, b *candidate) int {
		return cmp.Or(
			cmp.Compare(a.cost, b.cost),
			compareBool(!a.hasChange, !b.hasChange),
			compareBool(a.mixed, b.mixed),
		)
	})

	best := ordered[0].cost
	finalists := fn.Filter(ordered, func(c *candidate) bool {
		return c.cost*5 <= best*6
	})

	log.Tracef("Picking among %d of %d candidates: %v", len(finalists),
		len(ordered), newLogClosure(func() string {
			return limitSpewer.Sdump(fn.Map(finalists,
				func(c *candidate) []coin.Output {
					return c.outputs
				}))
		}))

	largest := largestValues(finalists)
	chosen := largest[rng.IntN(len(largest))]

	bucket := fn.Filter(finalists, func(c *candidate) bool {
		l, _ := coin.Largest(c.outputs)
		return l.Amount == chosen
	})

	return bucket[rng.IntN(len(bucket))]
}

// largestValues returns the distinct face values of the largest output of
// every candidate in order of first appearance. Outputs of equal value but
// different script types count once.
func largestValues(candidates []*candidate) []btcutil.Amount {
	var values []btcutil.Amount
	seen := fn.NewSet[btcutil.Amount]()
	for _, c := range candidates {
		l, _ := coin.Largest(c.outputs)
		if !seen.Contains(l.Amount) {
			seen.Add(l.Amount)
			values = append(values, l.Amount)
		}
	}

	return values
}

// compareBool orders true before false.
func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return -1
	default:
		return 1
	}
}

// checkInvariants verifies the picked outputs against the input sum and the
// vsize budget and returns the leftover.
func (m *Mixer) checkInvariants(mySum btcutil.Amount, outputs []coin.Output,
	availableVSize int) (btcutil.Amount, error) {

	total := coin.TotalEffectiveCost(outputs)
	violation := func(kind error, format string,
		args ...any) *InvariantError {

		return &InvariantError{
			Kind:       kind,
			InputSum:   mySum,
			OutputCost: total,
			Detail:     fmt.Sprintf(format, args...),
		}
	}

	minOutput := m.cfg.MinAllowedOutputAmount
	switch {
	case total > mySum:
		return 0, violation(ErrMoneyCreated, "outputs exceed inputs "+
			"by %v", total-mySum)

	case total+minOutput+m.changeFee < mySum:
		return 0, violation(ErrMoneyLost, "%v unallocated, at most %v "+
			"allowed", mySum-total, minOutput+m.changeFee)
	}

	if vsize := coin.TotalVSize(outputs, m.model); vsize > availableVSize {
		return 0, violation(ErrVSizeExceeded, "outputs take %d vbytes, "+
			"%d available", vsize, availableVSize)
	}

	leftover := mySum - total
	if leftover > m.maxLeftover() {
		return 0, violation(ErrLeftoverTooLarge, "leftover %v above %v",
			leftover, m.maxLeftover())
	}

	return leftover, nil
}
