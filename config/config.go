package config

import (
	"errors"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigDebug              = "debug"
	ConfigThreads            = "threads"
	ConfigMaxPlies           = "max-plies"
	ConfigSplitDepth         = "split-depth"
	ConfigTTSizePower        = "tt-size-power"
	ConfigTTFractionOfMem    = "tt-fraction-of-mem"
	ConfigAlphaBeta          = "alpha-beta"
	ConfigTranspositionTable = "transposition-table"
	ConfigIterativeDeepening = "iterative-deepening"
	ConfigProgressInterval   = "progress-interval"
	ConfigSolveTimeout       = "solve-timeout"
	ConfigSolutionDBPath     = "solution-db-path"
	ConfigNatsURL            = "nats-url"
	ConfigNatsChannel        = "nats-channel"
	ConfigLambdaFunction     = "lambda-function"
	ConfigCPUProfile         = "cpu-profile"
	ConfigConfigFile         = "config-file"
)

const EnvPrefix = "TILEPAIRS"

type Config struct {
	viper.Viper
}

func defaultThreads() int {
	return max(1, runtime.NumCPU()-1)
}

func (c *Config) setDefaults() {
	c.SetDefault(ConfigDebug, false)
	c.SetDefault(ConfigThreads, defaultThreads())
	c.SetDefault(ConfigMaxPlies, 0)
	c.SetDefault(ConfigSplitDepth, 4)
	c.SetDefault(ConfigTTSizePower, 20)
	c.SetDefault(ConfigTTFractionOfMem, 0.0)
	c.SetDefault(ConfigAlphaBeta, true)
	c.SetDefault(ConfigTranspositionTable, true)
	c.SetDefault(ConfigIterativeDeepening, true)
	c.SetDefault(ConfigProgressInterval, 1000000)
	c.SetDefault(ConfigSolveTimeout, time.Duration(0))
	c.SetDefault(ConfigSolutionDBPath, "")
	c.SetDefault(ConfigNatsURL, "nats://127.0.0.1:4222")
	c.SetDefault(ConfigNatsChannel, "tilepairs.solve")
	c.SetDefault(ConfigLambdaFunction, "")
	c.SetDefault(ConfigCPUProfile, "")
	c.SetDefault(ConfigConfigFile, "")
}

func flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("tilepairs", pflag.ContinueOnError)
	// everything after the first positional argument is a shell command.
	fs.SetInterspersed(false)
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.Int(ConfigThreads, defaultThreads(), "number of solver threads")
	fs.Int(ConfigMaxPlies, 0, "ply bound for searches; 0 searches the whole game")
	fs.Int(ConfigSplitDepth, 4, "smallest remaining depth at which the solver spawns helpers")
	fs.Int(ConfigTTSizePower, 20, "log2 of the number of transposition table entries")
	fs.Float64(ConfigTTFractionOfMem, 0, "if set, size the transposition table to this fraction of system memory")
	fs.Bool(ConfigAlphaBeta, true, "use alpha-beta pruning")
	fs.Bool(ConfigTranspositionTable, true, "use the transposition table")
	fs.Bool(ConfigIterativeDeepening, true, "use iterative deepening")
	fs.Int(ConfigProgressInterval, 1000000, "nodes between progress reports")
	fs.Duration(ConfigSolveTimeout, 0, "deadline for a solve; 0 means none")
	fs.String(ConfigSolutionDBPath, "", "sqlite file caching solved positions")
	fs.String(ConfigNatsURL, "nats://127.0.0.1:4222", "the NATS server URL")
	fs.String(ConfigNatsChannel, "tilepairs.solve", "the NATS subject the bot listens on")
	fs.String(ConfigLambdaFunction, "", "name or ARN of the deployed solver lambda")
	fs.String(ConfigCPUProfile, "", "file to write a CPU profile to")
	fs.String(ConfigConfigFile, "", "optional config file")
	return fs
}

// DefaultConfig returns a config with only default values and environment
// overrides. It does not parse flags.
func DefaultConfig() *Config {
	c := &Config{Viper: *viper.New()}
	c.setDefaults()
	c.bindEnv()
	return c
}

func (c *Config) bindEnv() {
	c.SetEnvPrefix(EnvPrefix)
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()
}

// Load parses args as flags and layers them over the environment, an
// optional config file, and the defaults. It returns the positional
// arguments left after the flags.
func (c *Config) Load(args []string) ([]string, error) {
	c.Viper = *viper.New()
	c.setDefaults()
	fs := flagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := c.BindPFlags(fs); err != nil {
		return nil, err
	}
	c.bindEnv()

	if cf := c.GetString(ConfigConfigFile); cf != "" {
		c.SetConfigFile(cf)
		if err := c.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
			log.Warn().Str("config-file", cf).Msg("config-file-not-found")
		}
	}
	return fs.Args(), nil
}

// SanitizedSettings is the settings map for logging.
func (c *Config) SanitizedSettings() map[string]any {
	settings := c.AllSettings()
	if u, ok := settings[ConfigNatsURL].(string); ok && strings.Contains(u, "@") {
		settings[ConfigNatsURL] = "<redacted>"
	}
	return settings
}
