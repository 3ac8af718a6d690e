package commands

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(embedCmd)
}

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "向量化简介并降维，写出 embeddings / umap_embeddings / full_movie_details",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, cleanup, err := newPipeline(true)
		if err != nil {
			return err
		}
		defer cleanup()

		return p.Embed(cmd.Context())
	},
}
