// Package decomposer enumerates ways to write a target amount as a sum of
// catalog values. The search is a depth-first walk over non-increasing
// combinations with repetition, pruned by what the remaining terms could
// still reach, and capped so that it stays fast rather than complete.
package decomposer

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

const (
	// DefaultMaxResults is the default cap on the number of results of a
	// single search.
	DefaultMaxResults = 10_000

	// DefaultMaxBranches is the default cap on the number of results per
	// starting value and on the fan-out of every search level.
	DefaultMaxBranches = 50
)

var (
	// ErrInvalidMaxCount is returned when the term limit is not between
	// one and MaxTerms.
	ErrInvalidMaxCount = errors.New("invalid max count")

	// ErrCatalogTooLarge is returned when the catalog holds more values
	// than a Path can index.
	ErrCatalogTooLarge = errors.New("catalog too large")

	// ErrUnsortedCatalog is returned when the catalog is not strictly
	// descending or holds a non-positive value.
	ErrUnsortedCatalog = errors.New("catalog must be strictly descending " +
		"and positive")

	// ErrNegativeAmount is returned for a negative target or tolerance.
	ErrNegativeAmount = errors.New("negative amount")

	// ErrInvalidConfig is returned when a search cap is not positive.
	ErrInvalidConfig = errors.New("invalid decomposer config")
)

// Config bounds the amount of work a search may do.
type Config struct {
	// MaxResults is the total number of results a search yields at most.
	MaxResults int

	// MaxBranches is the number of results a single starting value may
	// contribute and the number of siblings explored at every level.
	MaxBranches int
}

// DefaultConfig returns the default search caps.
func DefaultConfig() Config {
	return Config{
		MaxResults:  DefaultMaxResults,
		MaxBranches: DefaultMaxBranches,
	}
}

// Validate checks that both caps are positive.
func (c Config) Validate() error {
	if c.MaxResults <= 0 || c.MaxBranches <= 0 {
		return fmt.Errorf("%w: max results %d, max branches %d",
			ErrInvalidConfig, c.MaxResults, c.MaxBranches)
	}

	return nil
}

// Request describes one search.
type Request struct {
	// Target is the sum to reach.
	Target int64

	// Tolerance is how far below the target a combination may end. A
	// branch is complete once the remaining amount drops below it.
	Tolerance int64

	// MaxCount is the largest number of terms in a combination.
	MaxCount int

	// Catalog holds the values to combine in strictly descending order.
	// Result paths index into it.
	Catalog []int64
}

// Validate checks that the request can be searched.
func (r *Request) Validate() error {
	switch {
	case r.Target < 0 || r.Tolerance < 0:
		return fmt.Errorf("%w: target %d, tolerance %d",
			ErrNegativeAmount, r.Target, r.Tolerance)

	case r.MaxCount < 1 || r.MaxCount > MaxTerms:
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidMaxCount,
			r.MaxCount, MaxTerms)

	case len(r.Catalog) > MaxCatalogSize:
		return fmt.Errorf("%w: %d values, at most %d", ErrCatalogTooLarge,
			len(r.Catalog), MaxCatalogSize)
	}

	for i, v := range r.Catalog {
		if v <= 0 || (i > 0 && v >= r.Catalog[i-1]) {
			return fmt.Errorf("%w: value %d at index %d",
				ErrUnsortedCatalog, v, i)
		}
	}

	return nil
}

// search holds the state of one running search.
type search struct {
	cfg   Config
	req   *Request
	yield func(Result) bool

	// total is the number of results yielded so far, perStart the number
	// yielded under the current starting value.
	total    int
	perStart int

	// done is set once the caller or the result cap ends the search.
	done bool
}

// Search walks the combinations of catalog values that reach the target
// within tolerance and calls yield for every one found. Every catalog value
// not above the target is tried as the first term. Returning false from
// yield stops the search. The context is checked before every starting
// value, a cancelled search returns the context's error.
func Search(ctx context.Context, cfg Config, req Request,
	yield func(Result) bool) error {

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	s := &search{
		cfg:   cfg,
		req:   &req,
		yield: yield,
	}

	first := s.firstAtMost(req.Target, 0)
	for start := first; start < len(req.Catalog); start++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.perStart = 0
		s.walk(start, 0, 0, req.MaxCount-1, true)

		if s.done {
			break
		}
	}

	return nil
}

// Decompose runs a search and collects its results.
func Decompose(ctx context.Context, cfg Config, req Request) ([]Result,
	error) {

	var results []Result
	err := Search(ctx, cfg, req, func(r Result) bool {
		results = append(results, r)
		return true
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// emit hands a result to the caller and reports whether the current
// starting value may produce more.
func (s *search) emit(r Result) bool {
	s.total++
	s.perStart++

	if !s.yield(r) || s.total >= s.cfg.MaxResults {
		s.done = true
		return false
	}

	return s.perStart < s.cfg.MaxBranches
}

// walk chooses the catalog value at index as the next term. The first return
// value reports that the subtree ended on an exact match, the second that the
// search may go on. k is the number of terms still allowed after this one.
func (s *search) walk(index int, path Path, sum int64, k int,
	root bool) (bool, bool) {

	catalog := s.req.Catalog

	path = path.push(index)
	sum += catalog[index]
	remaining := s.req.Target - sum

	if k == 0 || remaining < s.req.Tolerance {
		more := s.emit(Result{
			Sum:   sum,
			Count: s.req.MaxCount - k,
			Path:  path,
		})

		return sum == s.req.Target, more
	}

	next := s.firstAtMost(remaining, index)
	for i := next; i < len(catalog) && i-next < s.cfg.MaxBranches; i++ {
		// Values only get smaller from here, if this one cannot fill
		// the gap with every remaining term no later one can.
		if int64(k)*catalog[i] < remaining-s.req.Tolerance {
			break
		}

		exact, more := s.walk(i, path, sum, k-1, false)
		if !more {
			return false, false
		}

		// An exact match ends the whole branch below the starting
		// value, the starting value itself goes on with its next
		// child.
		if exact && !root {
			return true, true
		}
	}

	return false, true
}

// firstAtMost returns the first index at or after offset whose value does not
// exceed value, or the catalog length if there is none.
func (s *search) firstAtMost(value int64, offset int) int {
	catalog := s.req.Catalog[offset:]

	return offset + sort.Search(len(catalog), func(i int) bool {
		return catalog[i] <= value
	})
}
