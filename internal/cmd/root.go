package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/cadence/internal/cmd/config"
	appconfig "github.com/Iron-Ham/cadence/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "cadence",
	Short: "Task dependency and scheduling engine",
	Long: `Cadence analyzes project plans: it builds the task dependency graph,
computes the critical path, forecasts completion with confidence bounds,
finds bottlenecks and proposes resource reassignments.

Plans are read from YAML or JSON snapshot files holding tasks,
dependencies, resources and allocations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx; canceling it stops
// long-running commands such as watch.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/cadence/config.yaml)")
	rootCmd.PersistentFlags().Bool("json", false, "write results as JSON")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colors in text output")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-dir", "", "write rotated logs to this directory instead of stderr")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.dir", rootCmd.PersistentFlags().Lookup("log-dir"))

	config.Register(rootCmd)
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	appconfig.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(appconfig.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CADENCE")
	// Replace dots with underscores for nested keys in env vars
	// e.g., CADENCE_FORECAST_DEFAULT_UNIT for forecast.default_unit
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
