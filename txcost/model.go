package txcost

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/coinmix/pkg/btcunit"
)

const (
	// MaxStandardTxVSize is the policy limit on the virtual size of a
	// transaction relayed by default.
	MaxStandardTxVSize = 100_000

	// segwitMarkerVSize accounts for the two weight units of the segwit
	// marker and flag, rounded up to a whole vbyte.
	segwitMarkerVSize = 1
)

// Estimator maps script types to the virtual sizes of inputs and outputs. It
// is the seam for plugging in a different size estimation.
type Estimator interface {
	// InputVSize returns the virtual size of an input of the type.
	InputVSize(ScriptType) int

	// OutputVSize returns the virtual size of an output of the type.
	OutputVSize(ScriptType) int
}

// StandardEstimator estimates sizes with the standard P2WPKH and P2TR
// constants.
type StandardEstimator struct{}

// A compile time check to ensure StandardEstimator implements Estimator.
var _ Estimator = (*StandardEstimator)(nil)

// InputVSize returns the virtual size of an input of the type.
func (StandardEstimator) InputVSize(s ScriptType) int {
	return s.InputVSize()
}

// OutputVSize returns the virtual size of an output of the type.
func (StandardEstimator) OutputVSize(s ScriptType) int {
	return s.OutputVSize()
}

// Model prices inputs and outputs at a fixed fee rate. It is immutable and
// safe for concurrent use.
type Model struct {
	feeRate   btcunit.SatPerVByte
	estimator Estimator
}

// NewModel creates a cost model for the fee rate. A nil estimator selects the
// StandardEstimator.
func NewModel(feeRate btcunit.SatPerVByte, estimator Estimator) *Model {
	if estimator == nil {
		estimator = StandardEstimator{}
	}

	return &Model{
		feeRate:   feeRate,
		estimator: estimator,
	}
}

// FeeRate returns the fee rate the model prices with.
func (m *Model) FeeRate() btcunit.SatPerVByte {
	return m.feeRate
}

// InputVSize returns the virtual size of an input of the script type.
func (m *Model) InputVSize(s ScriptType) int {
	return m.estimator.InputVSize(s)
}

// OutputVSize returns the virtual size of an output of the script type.
func (m *Model) OutputVSize(s ScriptType) int {
	return m.estimator.OutputVSize(s)
}

// InputFee returns the fee for spending an output of the script type.
func (m *Model) InputFee(s ScriptType) btcutil.Amount {
	return m.FeeForVSize(m.InputVSize(s))
}

// OutputFee returns the fee for creating an output of the script type.
func (m *Model) OutputFee(s ScriptType) btcutil.Amount {
	return m.FeeForVSize(m.OutputVSize(s))
}

// FeeForVSize returns the fee for the given number of vbytes.
func (m *Model) FeeForVSize(vsize int) btcutil.Amount {
	if vsize <= 0 {
		return 0
	}

	return m.feeRate.FeeForVByte(btcunit.NewVByte(uint64(vsize)))
}

// SmallestOutputVSize returns the smallest output size among the script
// types, or among all supported types if none are given.
func (m *Model) SmallestOutputVSize(types ...ScriptType) int {
	if len(types) == 0 {
		types = AllScriptTypes
	}

	smallest := m.OutputVSize(types[0])
	for _, s := range types[1:] {
		smallest = min(smallest, m.OutputVSize(s))
	}

	return smallest
}

// SharedOverheadVSize returns the part of a transaction's virtual size that
// no single participant pays for: version, locktime, the input and output
// count varints and the segwit marker.
func SharedOverheadVSize(numInputs, numOutputs int) int {
	return 4 + // version
		4 + // locktime
		wire.VarIntSerializeSize(uint64(max(numInputs, 0))) +
		wire.VarIntSerializeSize(uint64(max(numOutputs, 0))) +
		segwitMarkerVSize
}
