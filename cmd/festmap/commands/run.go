package commands

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "依次执行 scrape 与 embed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, cleanup, err := newPipeline(true)
		if err != nil {
			return err
		}
		defer cleanup()

		return p.Run(cmd.Context())
	},
}
