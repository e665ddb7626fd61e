package commands

import (
	"github.com/spf13/cobra"

	"github.com/idunn/cryptarch/internal/logic"
)

// NewDecryptCommand creates the cobra command for the decrypt subcommand.
func NewDecryptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "decrypt [flags] archive destination",
		Aliases: []string{"dec"},
		Short:   "Unpack an encrypted archive",
		Args:    cobra.ExactArgs(2),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(cmd)
		},
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := loadConfig(args)
			if err != nil {
				return err
			}

			cfg.Decrypt = true

			return logic.Run(cfg)
		},
	}

	addCommonFlags(cmd)

	return cmd
}
