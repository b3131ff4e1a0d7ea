package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bimmerbailey/templar/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "templar",
	Short: "A self-learning log template miner",
	Long: `Templar parses device logs by mining regex templates with the help of
an LLM. Lines that match a known template are labeled immediately; lines
that don't are turned into new templates through a propose/review/repair
loop, with conflicts adjudicated and unresolvable cases escalated for
manual follow-up.

Examples:
  templar parse /var/log/fw/asa.log
  templar watch --from-start /var/log/fw/asa.log
  templar tasks list
  templar tasks resolve <task-id> --note "pattern fixed by hand"`,
}

// Execute is called by main.main(). It runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.templar.yaml)")
	rootCmd.PersistentFlags().StringP("format", "f", "text", "output format (text, json, table)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error finding home directory:", err)
		os.Exit(1)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".templar")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("TEMPLAR")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("format", "text")
	viper.SetDefault("verbose", false)
	viper.SetDefault("state_dir", filepath.Join(home, ".templar"))
	viper.SetDefault("llm.provider", "ollama")
	viper.SetDefault("llm.temperature", 0.0)
	viper.SetDefault("llm.max_tokens", 0)
	viper.SetDefault("llm.ollama.model", "llama3.2")
	viper.SetDefault("learning.repair_retries", 1)
	viper.SetDefault("learning.sample_lines", 12)

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// loadConfig materializes the viper state into a typed config.
func loadConfig() (*config.Config, error) {
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// newLogger builds the CLI logger. Logs go to stderr so command output on
// stdout stays machine-readable.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelError
	if verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
