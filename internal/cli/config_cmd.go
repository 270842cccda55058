package cli

import (
	"github.com/spf13/cobra"
)

func configCommand(g *globals) *cobra.Command {
	var validate bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long:  "Print the configuration after defaults, config.yaml and environment overrides. Secrets are masked.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if validate {
				if err := g.cfg.Validate(); err != nil {
					return err
				}
			}
			out, err := g.cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().BoolVar(&validate, "validate", false, "Fail if the configuration is invalid")

	return cmd
}
