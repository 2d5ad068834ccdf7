package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ineyio/gemguard"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "gemguard",
		Short: "gemguard: resilience and cost accounting for Gemini calls",
		Long: `gemguard wraps Gemini generation calls with retries, a circuit breaker,
safety-block detection and token/cost accounting.

Configuration is read from a YAML file (--config, ./.gemguard.yaml or
$HOME/.gemguard.yaml) and GEMGUARD_* environment variables.`,
		SilenceUsage: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gemguard.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".gemguard")
	}

	viper.SetEnvPrefix("GEMGUARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.BindEnv("api_key", "GEMGUARD_API_KEY", "GEMINI_API_KEY")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig returns the guard configuration from the file viper found, or
// the defaults when there is none.
func loadConfig() (gemguard.Config, error) {
	path := viper.ConfigFileUsed()
	if path == "" {
		cfg := gemguard.DefaultConfig()
		if m := viper.GetString("default_model"); m != "" {
			cfg.DefaultModel = m
		}
		return cfg, nil
	}
	return gemguard.LoadConfig(path)
}

func newLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log.level"))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if viper.GetString("log.format") == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
