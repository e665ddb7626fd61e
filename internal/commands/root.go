package commands

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command with the encrypt and decrypt
// subcommands attached.
func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "cryptarch [flags] command [flags]",
		Short: "Encrypted archive utility",
		Long: `Packs a set of files into a single encrypted, compressed archive,
and unpacks such archives back into files.`,
		Version:      version,
		SilenceUsage: true,
	}

	root.AddCommand(NewEncryptCommand(), NewDecryptCommand())

	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute(version string) {
	if err := NewRootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}
