// Package coin defines the value types a coinjoin participant registers:
// inputs it spends and outputs it asks the round to create.
package coin

import (
	"slices"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/coinmix/txcost"
)

// Output is an output a participant registers in a round. It is a plain
// comparable value, two outputs with the same amount, script type and fees
// are the same output and can be used as map keys.
type Output struct {
	// Amount is the face value of the output.
	Amount btcutil.Amount

	// ScriptType is the script type of the output.
	ScriptType txcost.ScriptType

	// Fee is the fee paid by the participant for including the output in
	// the coinjoin.
	Fee btcutil.Amount

	// InputFee is the fee that will be paid when the output is later
	// spent as an input.
	InputFee btcutil.Amount
}

// FromDenomination creates an output with the given face value.
func FromDenomination(amount btcutil.Amount, scriptType txcost.ScriptType,
	model *txcost.Model) Output {

	return Output{
		Amount:     amount,
		ScriptType: scriptType,
		Fee:        model.OutputFee(scriptType),
		InputFee:   model.InputFee(scriptType),
	}
}

// FromAmount creates an output that costs exactly effectiveCost to create,
// the output fee is deducted from the face value.
func FromAmount(effectiveCost btcutil.Amount, scriptType txcost.ScriptType,
	model *txcost.Model) Output {

	out := FromDenomination(effectiveCost, scriptType, model)
	out.Amount -= out.Fee

	return out
}

// EffectiveAmount is the value the owner nets after paying for the output's
// own inclusion.
func (o Output) EffectiveAmount() btcutil.Amount {
	return o.Amount - o.Fee
}

// EffectiveCost is what it costs the participant to create the output.
func (o Output) EffectiveCost() btcutil.Amount {
	return o.Amount + o.Fee
}

// VSize returns the virtual size of the output under the model.
func (o Output) VSize(model *txcost.Model) int {
	return model.OutputVSize(o.ScriptType)
}

// String returns a compact representation of the output.
func (o Output) String() string {
	return o.Amount.String() + " " + o.ScriptType.String()
}

// TotalEffectiveCost sums the effective costs of the outputs.
func TotalEffectiveCost(outputs []Output) btcutil.Amount {
	var total btcutil.Amount
	for _, o := range outputs {
		total += o.EffectiveCost()
	}

	return total
}

// TotalFees sums the fees for creating the outputs and for later spending
// them.
func TotalFees(outputs []Output) btcutil.Amount {
	var total btcutil.Amount
	for _, o := range outputs {
		total += o.Fee + o.InputFee
	}

	return total
}

// TotalOutputFees sums the fees for creating the outputs only.
func TotalOutputFees(outputs []Output) btcutil.Amount {
	var total btcutil.Amount
	for _, o := range outputs {
		total += o.Fee
	}

	return total
}

// TotalVSize sums the virtual sizes of the outputs.
func TotalVSize(outputs []Output, model *txcost.Model) int {
	var total int
	for _, o := range outputs {
		total += o.VSize(model)
	}

	return total
}

// Largest returns the output with the highest face value. The second return
// value is false for an empty slice.
func Largest(outputs []Output) (Output, bool) {
	if len(outputs) == 0 {
		return Output{}, false
	}

	largest := outputs[0]
	for _, o := range outputs[1:] {
		if o.Amount > largest.Amount {
			largest = o
		}
	}

	return largest, true
}

// SortKey returns the order independent identity of a set of outputs: the
// sorted multiset of their face values. Two decompositions with the same key
// produce the same amounts regardless of how they were built.
func SortKey(outputs []Output) string {
	amounts := make([]btcutil.Amount, len(outputs))
	for i, o := range outputs {
		amounts[i] = o.Amount
	}
	slices.Sort(amounts)

	var b strings.Builder
	for i, a := range amounts {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(int64(a), 10))
	}

	return b.String()
}
