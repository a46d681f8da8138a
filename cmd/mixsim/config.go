package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btclog"
	"github.com/btcsuite/coinmix/decomposer"
	"github.com/btcsuite/coinmix/mixer"
	"github.com/btcsuite/coinmix/pkg/btcunit"
	"github.com/btcsuite/coinmix/simulation"
	"github.com/btcsuite/coinmix/txcost"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "mixsim.conf"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "mixsim.log"
	defaultLogLevel       = "info"
	defaultMaxLogFileSize = 10
	defaultMaxLogFiles    = 3
)

var (
	defaultConfigFile = filepath.Join(".", defaultConfigFilename)
	defaultLogDir     = filepath.Join(".", defaultLogDirname)

	// errMissingSample is returned when no sample file was given.
	errMissingSample = errors.New("a sample file is required, see --sample")
)

// config defines the configuration options for mixsim.
type config struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`
	Sample     string `short:"s" long:"sample" description:"File with one BTC amount per line to draw inputs from"`

	Iterations int           `short:"n" long:"iterations" description:"Number of pre-mix and remix round pairs to simulate"`
	Inputs     int           `long:"inputs" description:"Number of inputs of every round"`
	Users      int           `long:"users" description:"Number of participants of every round"`
	RemixRatio float64       `long:"remixratio" description:"Share of remix round inputs that come out of the pre-mix round"`
	Seed       uint64        `long:"seed" description:"Seed for a reproducible simulation; 0 picks a random one"`
	Progress   time.Duration `long:"progress" description:"How often to log progress"`

	FeeRate            int64    `long:"feerate" description:"Mining fee rate of a round in sat/vbyte"`
	MinOutput          int64    `long:"minoutput" description:"Smallest allowed output in satoshis"`
	MaxOutput          float64  `long:"maxoutput" description:"Largest allowed output in BTC"`
	ScriptTypes        []string `long:"scripttype" description:"Allowed output script type (p2wpkh, p2tr); may be given twice"`
	MaxResults         int      `long:"maxresults" description:"Most combinations a single decomposition search yields"`
	MaxBranches        int      `long:"maxbranches" description:"Fan-out limit of the decomposition search"`
	MaxTxVSize         int      `long:"maxtxvsize" description:"Virtual size limit of the coinjoin"`
	MaxVSizeCredential int      `long:"maxvsizecredential" description:"Most vbytes a single input can pay for"`
	Workers            int      `long:"workers" description:"Number of participants decomposed concurrently"`

	LogDir         string `long:"logdir" description:"Directory to log output"`
	DebugLevel     string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	MaxLogFileSize int    `long:"maxlogfilesize" description:"Maximum log file size in MB before it is rotated"`
	MaxLogFiles    int    `long:"maxlogfiles" description:"Maximum number of rotated log files to keep; 0 keeps all"`
}

// defaultConfig returns a config filled with the default values.
func defaultConfig() config {
	mixCfg := mixer.DefaultConfig()
	simCfg := simulation.DefaultConfig()

	return config{
		ConfigFile:         defaultConfigFile,
		Iterations:         simCfg.Iterations,
		Inputs:             simCfg.InputCount,
		Users:              simCfg.UserCount,
		RemixRatio:         simCfg.RemixRatio,
		Progress:           simCfg.ProgressInterval,
		FeeRate:            mixer.DefaultFeeRate,
		MinOutput:          int64(mixer.DefaultMinAllowedOutputAmount),
		MaxOutput:          mixer.DefaultMaxAllowedOutputAmount.ToBTC(),
		MaxResults:         decomposer.DefaultMaxResults,
		MaxBranches:        decomposer.DefaultMaxBranches,
		MaxTxVSize:         txcost.MaxStandardTxVSize,
		MaxVSizeCredential: mixer.DefaultMaxVSizeCredential,
		Workers:            mixCfg.Workers,
		LogDir:             defaultLogDir,
		DebugLevel:         defaultLogLevel,
		MaxLogFileSize:     defaultMaxLogFileSize,
		MaxLogFiles:        defaultMaxLogFiles,
	}
}

// loadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
func loadConfig(args []string) (*config, error) {
	preCfg := defaultConfig()
	preParser := flags.NewParser(&preCfg, flags.Default)
	if _, err := preParser.ParseArgs(args); err != nil {
		return nil, err
	}

	// A missing default config file is fine, an explicitly requested one
	// must exist.
	cfg := defaultConfig()
	fileParser := flags.NewParser(&cfg, flags.Default)
	err := flags.NewIniParser(fileParser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		var iniErr *flags.IniError
		switch {
		case errors.As(err, &iniErr):
			return nil, err

		case preCfg.ConfigFile != defaultConfigFile:
			return nil, fmt.Errorf("unable to load config file: %w",
				err)
		}
	}

	// Command line options take precedence over the file.
	flagParser := flags.NewParser(&cfg, flags.Default)
	if _, err := flagParser.ParseArgs(args); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate checks the values that cannot be checked by the simulation
// config itself.
func (c *config) validate() error {
	if c.Sample == "" {
		return errMissingSample
	}

	if _, ok := btclog.LevelFromString(c.DebugLevel); !ok {
		return fmt.Errorf("invalid debug level %q", c.DebugLevel)
	}

	if c.MaxLogFileSize <= 0 || c.MaxLogFiles < 0 {
		return fmt.Errorf("invalid log rotation: max size %d MB, "+
			"max files %d", c.MaxLogFileSize, c.MaxLogFiles)
	}

	simCfg, err := c.simulationConfig()
	if err != nil {
		return err
	}

	return simCfg.Validate()
}

// simulationConfig converts the options into a simulation config.
func (c *config) simulationConfig() (simulation.Config, error) {
	maxOutput, err := btcutil.NewAmount(c.MaxOutput)
	if err != nil {
		return simulation.Config{}, fmt.Errorf("invalid max output: %w",
			err)
	}

	scriptTypes := txcost.AllScriptTypes
	if len(c.ScriptTypes) > 0 {
		scriptTypes = make([]txcost.ScriptType, len(c.ScriptTypes))
		for i, name := range c.ScriptTypes {
			scriptTypes[i], err = txcost.ParseScriptType(name)
			if err != nil {
				return simulation.Config{}, err
			}
		}
	}

	return simulation.Config{
		Iterations: c.Iterations,
		InputCount: c.Inputs,
		UserCount:  c.Users,
		RemixRatio: c.RemixRatio,
		Seed:       c.Seed,
		Mixer: mixer.Config{
			FeeRate: btcunit.NewSatPerVByte(
				btcutil.Amount(c.FeeRate),
			),
			MinAllowedOutputAmount: btcutil.Amount(c.MinOutput),
			MaxAllowedOutputAmount: maxOutput,
			AllowedScriptTypes:     scriptTypes,
			MaxResults:             c.MaxResults,
			MaxBranches:            c.MaxBranches,
			MaxTxVSize:             c.MaxTxVSize,
			MaxVSizeCredential:     c.MaxVSizeCredential,
			Workers:                c.Workers,
		},
		ProgressInterval: c.Progress,
	}, nil
}
