// mixsim simulates pre-mix and remix coinjoin rounds on amounts drawn from a
// sample and prints averaged statistics of the resulting transactions.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/coinmix/simulation"
	flags "github.com/jessevdk/go-flags"
)

func main() {
	if err := mixsimMain(); err != nil {
		os.Exit(1)
	}
}

// mixsimMain is the real main function for mixsim. It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is
// called.
func mixsimMain() error {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil
		}
		fmt.Fprintln(os.Stderr, err)

		return err
	}

	logFile := filepath.Join(cfg.LogDir, defaultLogFilename)
	err = initLogRotator(logFile, cfg.MaxLogFileSize, cfg.MaxLogFiles)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	defer logRotator.Close()
	setLogLevels(cfg.DebugLevel)

	sample, err := simulation.LoadAmountsFile(cfg.Sample)
	if err != nil {
		mainLog.Errorf("Unable to load sample: %v", err)
		return err
	}
	mainLog.Infof("Loaded %d amounts from %s", len(sample), cfg.Sample)

	simCfg, err := cfg.simulationConfig()
	if err != nil {
		mainLog.Errorf("Invalid config: %v", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := simulation.Run(ctx, simCfg, sample)
	if err != nil {
		mainLog.Errorf("Simulation failed: %v", err)
		return err
	}

	// A single round is listed value by value as well.
	if len(results) == 1 {
		if err := writeOccurrences(results[0]); err != nil {
			mainLog.Errorf("Unable to write occurrences: %v", err)
			return err
		}
	}

	if _, err := simulation.Summarize(results).WriteTo(os.Stdout); err != nil {
		mainLog.Errorf("Unable to write report: %v", err)
		return err
	}

	return nil
}

// writeOccurrences lists how often every input and output value of the round
// appears.
func writeOccurrences(r *simulation.Result) error {
	sides := []struct {
		name   string
		groups [][]btcutil.Amount
	}{
		{name: "input", groups: r.InputGroups},
		{name: "output", groups: r.OutputGroups},
	}
	for _, side := range sides {
		_, err := simulation.WriteOccurrences(
			os.Stdout, side.name, simulation.Occurrences(side.groups),
		)
		if err != nil {
			return err
		}
		fmt.Println()
	}

	return nil
}
