package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vocdoni/davinci-sdk/internal"
)

const (
	defaultSequencerURL = "https://sequencer1.davinci.vote"
	defaultLogLevel     = "info"
	defaultLogOutput    = "stdout"
	defaultTimeout      = 10 * time.Minute
)

// Version is the build version, set at build time with -ldflags
var Version = internal.Version

// Config holds the vote casting configuration
type Config struct {
	Sequencer SequencerConfig
	Vote      VoteConfig
	Log       LogConfig
	Timeout   time.Duration
}

// SequencerConfig holds the sequencer API configuration
type SequencerConfig struct {
	URL string `mapstructure:"url"`
}

// VoteConfig holds the vote to cast
type VoteConfig struct {
	PrivKey string `mapstructure:"privkey"`
	Process string `mapstructure:"process"`
	Answers []int  `mapstructure:"answers"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Output string `mapstructure:"output"`
}

// loadConfig loads configuration from flags, environment variables, and defaults
func loadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("sequencer.url", defaultSequencerURL)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.output", defaultLogOutput)
	v.SetDefault("timeout", defaultTimeout)

	flag.StringP("sequencer.url", "s", defaultSequencerURL, "sequencer API base URL")
	flag.StringP("vote.privkey", "k", "", "voter private key in hex (required)")
	flag.StringP("vote.process", "p", "", "process id in hex (required)")
	flag.IntSliceP("vote.answers", "a", nil, "chosen option index per question, comma-separated")
	flag.DurationP("timeout", "t", defaultTimeout, "overall timeout for the vote submission")
	flag.StringP("log.level", "l", defaultLogLevel, "log level (debug, info, warn, error, fatal)")
	flag.StringP("log.output", "o", defaultLogOutput, "log output (stdout, stderr or filepath)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "davinci-vote v%s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: davinci-vote [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables are also available with the same name as flags,\n")
		fmt.Fprintf(os.Stderr, "  except for dashes (-) and dots (.) which are replaced by underscores (_).\n")
		fmt.Fprintf(os.Stderr, "  For example, DAVINCI_VOTE_PRIVKEY or DAVINCI_SEQUENCER_URL\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Cast a vote choosing option 3 of the only question\n")
		fmt.Fprintf(os.Stderr, "  davinci-vote --vote.privkey=0x123... --vote.process=0xabc... --vote.answers=3\n")
	}

	flag.CommandLine.SortFlags = false
	flag.Parse()

	v.SetEnvPrefix("DAVINCI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flag.CommandLine); err != nil {
		return nil, fmt.Errorf("error binding flags: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg, nil
}

// validateConfig validates the loaded configuration
func validateConfig(cfg *Config) error {
	if cfg.Vote.PrivKey == "" {
		return fmt.Errorf("private key is required (use --vote.privkey or DAVINCI_VOTE_PRIVKEY)")
	}
	if cfg.Vote.Process == "" {
		return fmt.Errorf("process id is required (use --vote.process or DAVINCI_VOTE_PROCESS)")
	}
	if len(cfg.Vote.Answers) == 0 {
		return fmt.Errorf("at least one answer is required (use --vote.answers)")
	}
	return nil
}
