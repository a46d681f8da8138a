package simulation

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/coinmix/pkg/btcunit"
)

// Result holds the statistics of one simulated remix round.
type Result struct {
	// Users is the number of participants.
	Users int

	// Inputs is the number of registered inputs.
	Inputs int

	// RemixedInputs is the number of inputs that came out of the pre-mix
	// round.
	RemixedInputs int

	// Outputs is the number of created outputs.
	Outputs int

	// Changes is the number of outputs with a value nobody else got.
	Changes int

	// InputAmount is the total value of the inputs.
	InputAmount btcutil.Amount

	// FeeInputs is the fee paid for spending the inputs.
	FeeInputs btcutil.Amount

	// FeeOutputs is the fee paid for creating the outputs.
	FeeOutputs btcutil.Amount

	// TotalFee is the input amount minus the output amount.
	TotalFee btcutil.Amount

	// VSize is the virtual size of the coinjoin.
	VSize int

	// FeeRate is the fee rate the coinjoin pays.
	FeeRate btcunit.SatPerVByte

	// InputAnonset and OutputAnonset are the average number of coins
	// sharing a coin's value on either side.
	InputAnonset  float64
	OutputAnonset float64

	// AnonsetGain is the average growth of a participant's anonymity
	// set from its inputs to its outputs.
	AnonsetGain float64

	// BlockspaceEfficiency is the anonset gain per thousand vbytes of a
	// participant's share of the coinjoin.
	BlockspaceEfficiency float64

	// TotalLeftover, MedianLeftover and LargestLeftover describe what
	// the decompositions forfeited. HasMedian is false if nothing was
	// recorded.
	TotalLeftover   btcutil.Amount
	MedianLeftover  float64
	HasMedian       bool
	LargestLeftover btcutil.Amount

	// TaprootOutputs and P2WPKHOutputs count the outputs per script
	// type.
	TaprootOutputs int
	P2WPKHOutputs  int

	// InputGroups and OutputGroups hold the face values of every
	// participant's coins.
	InputGroups  [][]btcutil.Amount
	OutputGroups [][]btcutil.Amount
}

// Summary averages the results of several rounds.
type Summary struct {
	Iterations      int
	Users           float64
	Inputs          float64
	RemixedInputs   float64
	Outputs         float64
	Changes         float64
	InputAmount     btcutil.Amount
	FeeInputs       btcutil.Amount
	FeeOutputs      btcutil.Amount
	TotalFee        btcutil.Amount
	VSize           float64
	FeeRate         float64
	InputAnonset    float64
	OutputAnonset   float64
	AnonsetGain     float64
	Efficiency      float64
	TotalLeftover   float64
	MedianLeftover  float64
	LargestLeftover float64
	TaprootOutputs  float64
	P2WPKHOutputs   float64
}

// average divides the total by n.
func average[T ~int | ~int64 | ~float64](total T, n int) float64 {
	return float64(total) / float64(n)
}

// Summarize averages the results. The median leftover only averages the
// results that have one.
func Summarize(results []*Result) *Summary {
	s := &Summary{Iterations: len(results)}
	if len(results) == 0 {
		return s
	}

	var (
		sum        Result
		feeRate    float64
		median     float64
		withMedian int
	)
	for _, r := range results {
		sum.Users += r.Users
		sum.Inputs += r.Inputs
		sum.RemixedInputs += r.RemixedInputs
		sum.Outputs += r.Outputs
		sum.Changes += r.Changes
		sum.InputAmount += r.InputAmount
		sum.FeeInputs += r.FeeInputs
		sum.FeeOutputs += r.FeeOutputs
		sum.TotalFee += r.TotalFee
		sum.VSize += r.VSize
		sum.InputAnonset += r.InputAnonset
		sum.OutputAnonset += r.OutputAnonset
		sum.AnonsetGain += r.AnonsetGain
		sum.BlockspaceEfficiency += r.BlockspaceEfficiency
		sum.TotalLeftover += r.TotalLeftover
		sum.LargestLeftover += r.LargestLeftover
		sum.TaprootOutputs += r.TaprootOutputs
		sum.P2WPKHOutputs += r.P2WPKHOutputs

		if r.VSize > 0 {
			feeRate += float64(r.TotalFee) / float64(r.VSize)
		}
		if r.HasMedian {
			median += r.MedianLeftover
			withMedian++
		}
	}

	n := len(results)
	s.Users = average(sum.Users, n)
	s.Inputs = average(sum.Inputs, n)
	s.RemixedInputs = average(sum.RemixedInputs, n)
	s.Outputs = average(sum.Outputs, n)
	s.Changes = average(sum.Changes, n)
	s.InputAmount = btcutil.Amount(average(sum.InputAmount, n))
	s.FeeInputs = btcutil.Amount(average(sum.FeeInputs, n))
	s.FeeOutputs = btcutil.Amount(average(sum.FeeOutputs, n))
	s.TotalFee = btcutil.Amount(average(sum.TotalFee, n))
	s.VSize = average(sum.VSize, n)
	s.FeeRate = average(feeRate, n)
	s.InputAnonset = average(sum.InputAnonset, n)
	s.OutputAnonset = average(sum.OutputAnonset, n)
	s.AnonsetGain = average(sum.AnonsetGain, n)
	s.Efficiency = average(sum.BlockspaceEfficiency, n)
	s.TotalLeftover = average(sum.TotalLeftover, n)
	s.LargestLeftover = average(sum.LargestLeftover, n)
	s.TaprootOutputs = average(sum.TaprootOutputs, n)
	s.P2WPKHOutputs = average(sum.P2WPKHOutputs, n)
	if withMedian > 0 {
		s.MedianLeftover = average(median, withMedian)
	}

	return s
}

// WriteTo writes a human readable report of the summary.
func (s *Summary) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	tw := tabwriter.NewWriter(cw, 0, 8, 2, ' ', 0)

	if s.Iterations > 1 {
		fmt.Fprintf(tw, "Average results from %d iterations\n",
			s.Iterations)
	}
	fmt.Fprintf(tw, "Number of users:\t%.2f\n", s.Users)
	fmt.Fprintf(tw, "Number of inputs:\t%.2f\n", s.Inputs)
	fmt.Fprintf(tw, "Number of remixed inputs:\t%.2f\n", s.RemixedInputs)
	fmt.Fprintf(tw, "Number of outputs:\t%.2f\n", s.Outputs)
	fmt.Fprintf(tw, "Number of changes:\t%.2f\n", s.Changes)
	fmt.Fprintf(tw, "Total in:\t%v\n", s.InputAmount)
	fmt.Fprintf(tw, "Fee paid for inputs:\t%v\n", s.FeeInputs)
	fmt.Fprintf(tw, "Fee paid for outputs:\t%v\n", s.FeeOutputs)
	fmt.Fprintf(tw, "Total fee:\t%v\n", s.TotalFee)
	fmt.Fprintf(tw, "Size:\t%.2f vbyte\n", s.VSize)
	fmt.Fprintf(tw, "Fee rate:\t%.2f sat/vbyte\n", s.FeeRate)
	fmt.Fprintf(tw, "Input anonset:\t%.2f\n", s.InputAnonset)
	fmt.Fprintf(tw, "Output anonset:\t%.2f\n", s.OutputAnonset)
	fmt.Fprintf(tw, "Anonset gain:\t%.2f\n", s.AnonsetGain)
	fmt.Fprintf(tw, "Blockspace efficiency:\t%.2f\n", s.Efficiency)
	fmt.Fprintf(tw, "Total leftover:\t%.2f\n", s.TotalLeftover)
	fmt.Fprintf(tw, "Median leftover:\t%.2f\n", s.MedianLeftover)
	fmt.Fprintf(tw, "Largest leftover:\t%.2f\n", s.LargestLeftover)
	fmt.Fprintf(tw, "Taproot/p2wpkh outputs:\t%.2f/%.2f\n",
		s.TaprootOutputs, s.P2WPKHOutputs)

	err := tw.Flush()

	return cw.n, err
}

// WriteOccurrences writes one line per value of the occurrences. Values
// owned by fewer participants than they occur show both counts.
func WriteOccurrences(w io.Writer, side string,
	occurrences []Occurrence) (int64, error) {

	cw := &countingWriter{w: w}
	tw := tabwriter.NewWriter(cw, 0, 8, 2, ' ', 0)
	for _, o := range occurrences {
		count := fmt.Sprint(o.Count)
		if o.Owners != o.Count {
			count = fmt.Sprintf("%d/%d unique/total", o.Owners,
				o.Count)
		}
		fmt.Fprintf(tw, "There are %s occurrences of\t%v %s.\n", count,
			o.Value, side)
	}

	err := tw.Flush()

	return cw.n, err
}

// countingWriter counts the bytes written through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)

	return n, err
}
