package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mlandt/touchline/internal/logging"
)

const Version = "0.1.0"

var (
	logLevelFlags []string // Supports multiple --log-level flags
	configPath    string
)

var rootCmd = &cobra.Command{
	Use:   "touchline",
	Short: "Touchline - football-betting research agents",
	Long: `Touchline routes natural-language football questions through a small
team of research agents: a fixture lookup agent resolves which match you
mean, then a report or answer agent gathers statistics and replies.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLog(logLevelFlags)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags available to all subcommands
	// Supports per-package log levels: --log-level debug --log-level supervisor=debug
	rootCmd.PersistentFlags().StringSliceVar(&logLevelFlags, "log-level",
		[]string{"info"},
		"Log level for packages. Use 'default=level' for default, or 'package.name=level' for per-package.\n"+
			"Examples: --log-level debug (all), --log-level supervisor=debug --log-level tools=warn")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to the YAML config file (optional; environment variables override it)")
}

// HandleError prints error and exits
func HandleError(err error, msg string) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
		os.Exit(1)
	}
}

// setupLog initializes the logging system with parsed log level flags
// Supports per-package log levels and environment variables
// Priority: CLI flags > Environment variables > Initialize default
func setupLog(flags []string) error {
	defaultLevel, packageLevels, err := parseLogLevelFlags(flags)
	if err != nil {
		return err
	}
	return logging.Initialize(defaultLevel, packageLevels)
}

// parseLogLevelFlags parses CLI flags and environment variables
// Priority: CLI flags > Environment variables
//
// CLI format: ["debug"], ["default=info", "supervisor=debug"], or ["info"]
// Env vars: LOG_LEVEL_AGENT_QUERY_AGENT=debug (package name uppercased, dots to underscores)
//
// Returns: (defaultLevel, packageLevels map, error)
func parseLogLevelFlags(flags []string) (string, map[string]string, error) {
	result := make(map[string]string)

	// Environment variables first (lower priority): LOG_LEVEL_* pattern
	for _, envPair := range os.Environ() {
		if strings.HasPrefix(envPair, "LOG_LEVEL_") {
			parts := strings.SplitN(envPair, "=", 2)
			if len(parts) != 2 {
				continue
			}
			packageName := convertEnvKeyToPackageName(parts[0])
			result[packageName] = parts[1]
		}
	}

	// CLI flags override env vars
	for _, flag := range flags {
		if !strings.Contains(flag, "=") {
			// Simple format like "debug" or "info" means default level
			result["default"] = flag
		} else {
			parts := strings.SplitN(flag, "=", 2)
			if len(parts) == 2 {
				result[parts[0]] = parts[1]
			}
		}
	}

	defaultLevel := "info"
	if level, exists := result["default"]; exists {
		defaultLevel = level
		delete(result, "default")
	}

	if err := validateLogLevel(defaultLevel); err != nil {
		return "", nil, err
	}
	for pkg, level := range result {
		if err := validateLogLevel(level); err != nil {
			return "", nil, fmt.Errorf("invalid log level for package %q: %v", pkg, err)
		}
	}

	return defaultLevel, result, nil
}

// convertEnvKeyToPackageName converts LOG_LEVEL_AGENT_QUERY -> agent.query
func convertEnvKeyToPackageName(envKey string) string {
	name := strings.TrimPrefix(envKey, "LOG_LEVEL_")
	return strings.ToLower(strings.ReplaceAll(name, "_", "."))
}

// validateLogLevel checks if a level string is valid
func validateLogLevel(level string) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}
	if !validLevels[strings.ToLower(level)] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error, fatal)", level)
	}
	return nil
}
