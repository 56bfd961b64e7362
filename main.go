// main.go
//
// Entry point for the wholepart server.
// Responsibilities:
//   - Cobra root command with the persistent --config flag.
//   - Configuration resolution (.env, config file, WHOLEPART_* env) via viper.
//   - Global zerolog setup shared by every subcommand.
//
// Subcommands live in serve.go (HTTP server) and tools.go (validate, render).

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/robalobadob/wholepart/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "wholepart",
	Short: "Whole & Part of a Whole learning activity server",
	Long: `wholepart serves the "Whole & Part of a Whole" activity: a guided
sequence of scenes where learners slice, count, and reassemble foods, with
progress saved per learner.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		setupLogging(cfg)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ./wholepart.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()
	if err := config.Init(viper.GetViper(), viper.GetString("config")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging applies the configured level and output format globally.
func setupLogging(cfg *config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// mustConfig returns the validated configuration; PersistentPreRunE has
// already rejected invalid settings.
func mustConfig() *config.Config {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	return cfg
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
