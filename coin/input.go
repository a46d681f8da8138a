package coin

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/coinmix/txcost"
)

// Input is a coin a participant spends in a round.
type Input struct {
	// Amount is the value of the coin.
	Amount btcutil.Amount

	// ScriptType is the script type of the spent output.
	ScriptType txcost.ScriptType

	// Fee is the fee for spending the coin in the coinjoin.
	Fee btcutil.Amount
}

// NewInput creates an input priced with the model.
func NewInput(amount btcutil.Amount, scriptType txcost.ScriptType,
	model *txcost.Model) Input {

	return Input{
		Amount:     amount,
		ScriptType: scriptType,
		Fee:        model.InputFee(scriptType),
	}
}

// EffectiveValue is the amount the input contributes after paying for its
// own inclusion.
func (i Input) EffectiveValue() btcutil.Amount {
	return i.Amount - i.Fee
}

// EffectiveValues returns the effective values of the inputs.
func EffectiveValues(inputs []Input) []btcutil.Amount {
	values := make([]btcutil.Amount, len(inputs))
	for i, in := range inputs {
		values[i] = in.EffectiveValue()
	}

	return values
}
