package mixer

import (
	"slices"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
)

// LeftoverLog records the value each decomposition left unallocated. It is
// append only and safe for concurrent use.
type LeftoverLog struct {
	mu     sync.Mutex
	values []btcutil.Amount
}

// Append records a leftover.
func (l *LeftoverLog) Append(v btcutil.Amount) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.values = append(l.values, v)
}

// Values returns a copy of the recorded leftovers in append order.
func (l *LeftoverLog) Values() []btcutil.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()

	return slices.Clone(l.values)
}

// Len returns the number of recorded leftovers.
func (l *LeftoverLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.values)
}

// Sum returns the total of the recorded leftovers.
func (l *LeftoverLog) Sum() btcutil.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()

	var sum btcutil.Amount
	for _, v := range l.values {
		sum += v
	}

	return sum
}

// Max returns the largest recorded leftover, zero if there is none.
func (l *LeftoverLog) Max() btcutil.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.values) == 0 {
		return 0
	}

	return slices.Max(l.values)
}

// Median returns the median of the recorded leftovers. The second return
// value is false when nothing was recorded.
func (l *LeftoverLog) Median() (float64, bool) {
	values := l.Values()
	if len(values) == 0 {
		return 0, false
	}
	slices.Sort(values)

	mid := len(values) / 2
	if len(values)%2 == 1 {
		return float64(values[mid]), true
	}

	return float64(values[mid-1]+values[mid]) / 2, true
}
