package simulation

import (
	"slices"
	"testing"

	"github.com/btcsuite/coinmix/internal/prng"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestRandomElements checks sampling without replacement.
func TestRandomElements(t *testing.T) {
	t.Parallel()

	rng := prng.NewRand(prng.SeedFromUint64(1), 0)
	elements := []int{1, 2, 3, 4, 5}

	picked := RandomElements(rng, elements, 3)
	require.Len(t, picked, 3)
	for _, p := range picked {
		require.Contains(t, elements, p)
	}
	require.Len(t, slices.Compact(slices.Sorted(slices.Values(picked))), 3)

	all := RandomElements(rng, elements, 10)
	require.ElementsMatch(t, elements, all)
	require.Equal(t, []int{1, 2, 3, 4, 5}, elements)

	require.Empty(t, RandomElements(rng, elements, -1))
}

// TestRandomGroupsErrors checks impossible group counts.
func TestRandomGroupsErrors(t *testing.T) {
	t.Parallel()

	rng := prng.NewRand(prng.SeedFromUint64(1), 0)

	_, err := RandomGroups(rng, []int{1, 2}, 0)
	require.ErrorIs(t, err, ErrInvalidGroupCount)

	_, err = RandomGroups(rng, []int{1, 2}, 3)
	require.ErrorIs(t, err, ErrInvalidGroupCount)
}

// TestRandomGroupsProperties checks that groups are non-empty, partition the
// elements and only depend on the seed.
func TestRandomGroupsProperties(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		elements := rapid.SliceOfN(rapid.Int(), 1, 100).Draw(t, "elements")
		n := rapid.IntRange(1, len(elements)).Draw(t, "n")
		seed := rapid.Uint64().Draw(t, "seed")

		groups, err := RandomGroups(
			prng.NewRand(prng.SeedFromUint64(seed), 0), elements, n,
		)
		require.NoError(t, err)
		require.Len(t, groups, n)

		for _, g := range groups {
			require.NotEmpty(t, g)
		}
		require.ElementsMatch(t, elements, flatten(groups))

		again, err := RandomGroups(
			prng.NewRand(prng.SeedFromUint64(seed), 0), elements, n,
		)
		require.NoError(t, err)
		require.Equal(t, groups, again)
	})
}
