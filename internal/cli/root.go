package cli

import (
	"github.com/spf13/cobra"

	"stayengine/internal/infra/config"
)

type rootOptions struct {
	envFiles []string
}

func NewRoot() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "stayengine",
		Short:         "Booking and availability engine for rental properties",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load before reading the environment (default .env)")
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	return config.Load(o.envFiles...)
}
