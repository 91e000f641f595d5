// Package config provides CLI commands for managing cadence configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	appconfig "github.com/Iron-Ham/cadence/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify cadence configuration",
	Long: `View or modify cadence configuration.

Use 'config show' to display the effective configuration, 'config init' to
create a config file with every option and 'config set' to change one value.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/cadence/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  cadence config set forecast.default_unit weeks
  cadence config set workers.max_parallel_plans 8
  cadence config set optimizer.timeout 10s`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var initForce bool

// keyKinds lists the settable keys and how their values are parsed.
var keyKinds = map[string]string{
	"forecast.default_confidence":     "float",
	"forecast.default_unit":           "string",
	"forecast.uncertainty_percent":    "float",
	"forecast.best_case_margin_hours": "float",
	"bottleneck.fan_threshold":        "int",
	"bottleneck.chain_length":         "int",
	"bottleneck.max_paths":            "int",
	"optimizer.timeout":               "duration",
	"optimizer.default_target":        "string",
	"optimizer.hard_constraints":      "bool",
	"workers.max_parallel_plans":      "int",
	"logging.level":                   "string",
	"logging.dir":                     "string",
	"logging.max_size_mb":             "int",
	"logging.max_backups":             "int",
	"logging.compress":                "bool",
	"output.format":                   "string",
	"output.color":                    "bool",
}

func init() {
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
}

// Register adds all config-related commands to the given parent command.
// This is the main entry point for integrating the config subpackage with
// the root command.
func Register(parent *cobra.Command) {
	parent.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(out, "# Config file: %s\n", used)
	} else {
		fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return enc.Close()
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(out, "Active config: %s\n", used)
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", appconfig.ConfigFile())
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", appconfig.ConfigFile())
	fmt.Fprintln(out, "  2. ./config.yaml (current directory)")
	fmt.Fprintln(out, "\nEnvironment variables: CADENCE_* (e.g., CADENCE_FORECAST_DEFAULT_UNIT)")
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile := appconfig.ConfigFile()
	if _, err := os.Stat(configFile); err == nil && !initForce {
		return fmt.Errorf("config file already exists at %s\nUse 'cadence config set' to modify values or --force to overwrite", configFile)
	}
	if err := writeDefaultConfig(configFile); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	return nil
}

func writeDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(appconfig.Default())
	if err != nil {
		return fmt.Errorf("failed to encode defaults: %w", err)
	}
	header := "# cadence configuration\n# Every key can also be set with a CADENCE_ environment variable.\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]

	kind, ok := keyKinds[key]
	if !ok {
		keys := make([]string, 0, len(keyKinds))
		for k := range keyKinds {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Errorf("unknown config key %q\nValid keys: %v", key, keys)
	}
	value, err := parseValue(kind, raw)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	prev := viper.Get(key)
	viper.Set(key, value)
	if _, err := appconfig.Load(); err != nil {
		viper.Set(key, prev)
		return fmt.Errorf("invalid configuration: %w", err)
	}

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = appconfig.ConfigFile()
		if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v in %s\n", key, value, configFile)
	return nil
}

func parseValue(kind, raw string) (any, error) {
	switch kind {
	case "int":
		return strconv.Atoi(raw)
	case "float":
		return strconv.ParseFloat(raw, 64)
	case "bool":
		return strconv.ParseBool(raw)
	case "duration":
		if _, err := time.ParseDuration(raw); err != nil {
			return nil, err
		}
		return raw, nil
	default:
		return raw, nil
	}
}
