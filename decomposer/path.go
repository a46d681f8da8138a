package decomposer

import (
	"fmt"
	"strings"
)

const (
	// indexBits is the width of one catalog index in a Path.
	indexBits = 8

	// indexMask extracts the most recent index from a Path.
	indexMask = 1<<indexBits - 1

	// MaxTerms is the largest number of terms a Path can hold.
	MaxTerms = 64 / indexBits

	// MaxCatalogSize is the largest catalog a Path can index into.
	MaxCatalogSize = indexMask + 1
)

// Path is a packed sequence of catalog indices, one byte per chosen term with
// the most recently chosen index in the low byte. The number of terms is not
// part of the encoding and must be carried alongside it.
type Path uint64

// push returns the path extended by one more index.
func (p Path) push(index int) Path {
	return p<<indexBits | Path(index&indexMask)
}

// Indices decodes the first count terms of the path in the order they were
// chosen.
func (p Path) Indices(count int) []int {
	indices := make([]int, count)
	for i := 0; i < count; i++ {
		indices[count-i-1] = int(p >> (i * indexBits) & indexMask)
	}

	return indices
}

// Values decodes the path against the catalog it was built from.
func (p Path) Values(count int, catalog []int64) []int64 {
	values := make([]int64, count)
	for i, idx := range p.Indices(count) {
		values[i] = catalog[idx]
	}

	return values
}

// Result is one combination found by the search.
type Result struct {
	// Sum is the total of the chosen catalog values.
	Sum int64

	// Count is the number of terms in Path.
	Count int

	// Path holds the chosen catalog indices.
	Path Path
}

// Indices returns the chosen catalog indices, largest value first.
func (r Result) Indices() []int {
	return r.Path.Indices(r.Count)
}

// Values returns the chosen catalog values, largest first.
func (r Result) Values(catalog []int64) []int64 {
	return r.Path.Values(r.Count, catalog)
}

// String returns a human readable form of the result's indices.
func (r Result) String() string {
	parts := make([]string, r.Count)
	for i, idx := range r.Indices() {
		parts[i] = fmt.Sprint(idx)
	}

	return fmt.Sprintf("sum=%d path=[%s]", r.Sum, strings.Join(parts, " "))
}
