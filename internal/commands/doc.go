// Package commands provides the command-line interface for the cryptarch tool.
//
// It implements commands for:
//   - packing files into an encrypted, compressed archive
//   - unpacking such an archive back into files
//
// The package handles command-line parsing, configuration validation,
// and environment variable binding through cobra and viper.
package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idunn/cryptarch/internal/config"
)

// addCommonFlags registers the flags shared by encrypt and decrypt.
func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("key", "k", "", "Passphrase the archive keystream is derived from")
	cmd.Flags().StringP("key-file", "f", "", "Path to a file containing the passphrase")
	cmd.Flags().StringSlice("filter", nil, `Extension filters applied when resolving a directory (e.g. "*.txt"); defaults to all files`)
	cmd.Flags().String("filter-from", "", "Path to a JSONC file with additional filter patterns")
	cmd.Flags().BoolP("recurse", "r", false, "Recurse into subdirectories when resolving a directory")
	cmd.Flags().BoolP("quiet", "q", false, "Suppress non-error output")
	cmd.Flags().Bool("stats", false, "Print run statistics on exit")
}

// bindFlags wires cobra flags and CRYPTARCH_* environment variables into viper.
func bindFlags(cmd *cobra.Command) error {
	viper.SetEnvPrefix("cryptarch")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	return nil
}

// loadConfig unmarshals flags and environment into a validated Config,
// filling the positional target and destination arguments.
func loadConfig(args []string) (*config.Config, error) {
	var cfg config.Config

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Target = args[0]
	cfg.Destination = args[1]

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
