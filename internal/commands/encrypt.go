package commands

import (
	"github.com/spf13/cobra"

	"github.com/idunn/cryptarch/internal/logic"
)

// NewEncryptCommand creates the cobra command for the encrypt subcommand.
func NewEncryptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "encrypt [flags] target destination",
		Aliases: []string{"enc"},
		Short:   "Pack files into an encrypted archive",
		Args:    cobra.ExactArgs(2),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(cmd)
		},
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := loadConfig(args)
			if err != nil {
				return err
			}

			return logic.Run(cfg)
		},
	}

	addCommonFlags(cmd)
	cmd.Flags().BoolP("delete", "d", false, "Delete the original files after a successful pack")

	return cmd
}
