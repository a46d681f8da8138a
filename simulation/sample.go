package simulation

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
)

// ErrEmptySample is returned when a sample holds no amounts.
var ErrEmptySample = errors.New("sample holds no amounts")

// LoadAmounts reads one decimal BTC amount per line. Blank lines and lines
// starting with '#' are skipped.
func LoadAmounts(r io.Reader) ([]btcutil.Amount, error) {
	var (
		amounts []btcutil.Amount
		lineNum int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNum++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		btc, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		amount, err := btcutil.NewAmount(btc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if amount <= 0 {
			return nil, fmt.Errorf("line %d: amount %v is not positive",
				lineNum, amount)
		}

		amounts = append(amounts, amount)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(amounts) == 0 {
		return nil, ErrEmptySample
	}

	return amounts, nil
}

// LoadAmountsFile reads a sample file with LoadAmounts.
func LoadAmountsFile(path string) ([]btcutil.Amount, error) {
	// #nosec G304 -- the path is chosen by the operator.
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	amounts, err := LoadAmounts(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return amounts, nil
}
