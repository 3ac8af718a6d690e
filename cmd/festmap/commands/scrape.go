package commands

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "抓取节目单与详情页，写出 raw_movie_details.json",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, cleanup, err := newPipeline(false)
		if err != nil {
			return err
		}
		defer cleanup()

		return p.Scrape(cmd.Context())
	},
}
