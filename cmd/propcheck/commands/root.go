// Package commands implements the CLI commands for propcheck.
package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/propcheck/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "propcheck",
	Short: "Analyse UK property listings",
	Long: `Propcheck turns a Rightmove listing into a structured property report.

It fetches the listing, extracts the key facts with an LLM (falling back to
pattern matching when no model is available), looks up the local price per
square metre, and derives purchase costs, mortgage scenarios and a value
for money score.

Examples:
  # Analyse a listing
  propcheck analyse https://www.rightmove.co.uk/properties/123456789

  # Several listings to a spreadsheet, with an LLM verdict each
  propcheck analyse URL1 URL2 URL3 --verdict -f xlsx -o listings.xlsx

  # Use local Ollama
  propcheck analyse URL -p ollama -m llama3.2

  # Regex only, no model calls
  propcheck analyse URL -p none

  # Run the HTTP API
  propcheck serve --addr :8080`,
	SilenceUsage: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		if configErr != nil {
			logError("%v", configErr)
		}
		return configErr
	},
}

// configErr holds a config file failure from initConfig, which cobra runs
// without a way to return errors.
var configErr error

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default $HOME/.propcheck.yaml)")
	pf.Bool("debug", false, "enable debug logging")
	pf.BoolP("quiet", "q", false, "suppress progress output")
	pf.Bool("log-json", false, "write logs as JSON")

	// LLM settings
	pf.StringP("provider", "p", "", "LLM provider: anthropic, openai, openrouter, gemini, ollama, none (auto-detects from env vars)")
	pf.StringSlice("fallback", nil, "providers to try in order when the primary fails")
	pf.StringP("model", "m", "", "model name (provider-specific)")
	pf.StringP("api-key", "k", "", "API key (or use the provider's env var)")
	pf.String("base-url", "", "custom API base URL")
	pf.Int("max-retries", 2, "provider SDK retries")
	pf.String("max-content-size", "100KB", "max text sent to the model (e.g. 100KB, 1MB, 0=unlimited)")

	// Fetch settings
	pf.String("fetch-mode", "static", "fetch mode: static, dynamic")
	pf.Duration("timeout", 30*time.Second, "request timeout")
	pf.Duration("delay", time.Second, "politeness delay before each listing fetch")
	pf.Bool("no-area", false, "skip the postcode area average lookup")

	for flag, key := range map[string]string{
		"config":           "config",
		"debug":            "debug",
		"quiet":            "quiet",
		"log-json":         "log_json",
		"provider":         "provider",
		"fallback":         "fallback",
		"model":            "model",
		"api-key":          "api_key",
		"base-url":         "base_url",
		"max-retries":      "max_retries",
		"max-content-size": "max_content_size",
		"fetch-mode":       "fetch_mode",
		"timeout":          "timeout",
		"delay":            "delay",
		"no-area":          "no_area",
	} {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}
}

func initConfig() {
	// A local .env is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	// Environment variables
	viper.SetEnvPrefix("PROPCHECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Provider-specific keys (ANTHROPIC_API_KEY and friends) are resolved
	// by the llm registry; this only covers an explicit override.
	_ = viper.BindEnv("api_key", "PROPCHECK_API_KEY")

	configErr = readConfig(viper.GetViper(), viper.GetString("config"))

	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  viper.GetBool("log_json"),
	})
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("config loaded", "path", used)
	}
}

// readConfig loads cfgFile, or searches $HOME and the working directory for
// .propcheck.yaml. Only a missing searched file is tolerated.
func readConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".propcheck")
		v.SetConfigType("yaml")
	}

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err == nil || (cfgFile == "" && errors.As(err, &notFound)) {
		return nil
	}
	return fmt.Errorf("failed to read config file: %w", err)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
