package simulation

import (
	"errors"
	"math/rand/v2"
	"slices"
)

// ErrInvalidGroupCount is returned when elements cannot be split into the
// requested number of groups.
var ErrInvalidGroupCount = errors.New("invalid group count")

// RandomElements returns n elements drawn without replacement, or all of
// them in random order if there are fewer than n.
func RandomElements[T any](rng *rand.Rand, elements []T, n int) []T {
	shuffled := slices.Clone(elements)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return shuffled[:max(min(n, len(shuffled)), 0)]
}

// RandomGroups splits the elements into n groups at random. Every group gets
// at least one element.
func RandomGroups[T any](rng *rand.Rand, elements []T, n int) ([][]T,
	error) {

	if n <= 0 || n > len(elements) {
		return nil, ErrInvalidGroupCount
	}

	shuffled := RandomElements(rng, elements, len(elements))

	groups := make([][]T, n)
	for i, e := range shuffled {
		// The first n elements seed one group each.
		g := i
		if i >= n {
			g = rng.IntN(n)
		}
		groups[g] = append(groups[g], e)
	}

	return groups, nil
}
