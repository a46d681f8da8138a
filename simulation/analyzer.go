package simulation

import (
	"cmp"
	"slices"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Indistinguishable maps every value to the number of times it occurs.
func Indistinguishable(values []btcutil.Amount) map[btcutil.Amount]int {
	counts := make(map[btcutil.Amount]int, len(values))
	for _, v := range values {
		counts[v]++
	}

	return counts
}

// AverageAnonset returns the mean number of coins that share a coin's value,
// the coin itself included.
func AverageAnonset(values []btcutil.Amount) float64 {
	if len(values) == 0 {
		return 0
	}

	counts := Indistinguishable(values)

	var total int
	for _, v := range values {
		total += counts[v]
	}

	return float64(total) / float64(len(values))
}

// UniqueCount returns the number of values that occur exactly once. Among
// outputs these are the ones anybody can link back to their owner.
func UniqueCount(values []btcutil.Amount) int {
	var unique int
	for _, count := range Indistinguishable(values) {
		if count == 1 {
			unique++
		}
	}

	return unique
}

// Occurrence describes how often a value appears on one side of a
// coinjoin and how many participants own it.
type Occurrence struct {
	Value  btcutil.Amount
	Count  int
	Owners int
}

// Occurrences lists the values of the groups, one group per participant, in
// ascending order.
func Occurrences(groups [][]btcutil.Amount) []Occurrence {
	counts := Indistinguishable(flatten(groups))
	owners := make(map[btcutil.Amount]int, len(counts))
	for _, g := range groups {
		for v := range fn.NewSet(g...) {
			owners[v]++
		}
	}

	occurrences := make([]Occurrence, 0, len(counts))
	for v, count := range counts {
		occurrences = append(occurrences, Occurrence{
			Value:  v,
			Count:  count,
			Owners: owners[v],
		})
	}
	slices.SortFunc(occurrences, func(a, b Occurrence) int {
		return cmp.Compare(a.Value, b.Value)
	})

	return occurrences
}

// weightedAnonset returns the value weighted mean anonymity set of a
// participant's coins given the counts of their side.
func weightedAnonset(values []btcutil.Amount,
	counts map[btcutil.Amount]int) (float64, bool) {

	var weighted, total float64
	for _, v := range values {
		weighted += float64(v) * float64(counts[v])
		total += float64(v)
	}
	if total <= 0 {
		return 0, false
	}

	return weighted / total, true
}

// AnonsetGain returns how much larger the anonymity set of a participant's
// outputs is than that of its inputs, both weighted by value, averaged over
// the participants that have coins on both sides. Groups are matched by
// index.
func AnonsetGain(inputGroups, outputGroups [][]btcutil.Amount) float64 {
	inCounts := Indistinguishable(flatten(inputGroups))
	outCounts := Indistinguishable(flatten(outputGroups))

	var (
		sum   float64
		users int
	)
	for i := 0; i < min(len(inputGroups), len(outputGroups)); i++ {
		in, ok := weightedAnonset(inputGroups[i], inCounts)
		if !ok {
			continue
		}
		out, ok := weightedAnonset(outputGroups[i], outCounts)
		if !ok {
			continue
		}
		sum += out / in
		users++
	}
	if users == 0 {
		return 0
	}

	return sum / float64(users)
}

// BlockspaceEfficiency returns the anonset gain per thousand vbytes of a
// participant's share of the transaction.
func BlockspaceEfficiency(gain float64, users, vsize int) float64 {
	if users <= 0 || vsize <= 0 {
		return 0
	}

	return gain * 1000 / (float64(vsize) / float64(users))
}

// flatten concatenates the groups.
func flatten[T any](groups [][]T) []T {
	var all []T
	for _, g := range groups {
		all = append(all, g...)
	}

	return all
}
