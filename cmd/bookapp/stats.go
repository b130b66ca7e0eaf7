package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.close()

		stats, err := a.store.CacheStats(cmd.Context())
		if err != nil {
			return err
		}
		indexed, err := a.index.Count()
		if err != nil {
			return err
		}

		fmt.Printf("Listing pages:   %d\n", stats.BookPages)
		fmt.Printf("Work details:    %d\n", stats.Details)
		fmt.Printf("Search pages:    %d\n", stats.SearchPages)
		fmt.Printf("Covers:          %d\n", stats.Covers)
		fmt.Printf("Lists:           %d (%d books)\n", stats.CustomLists, stats.ListBookCount)
		fmt.Printf("Indexed works:   %d\n", indexed)
		return nil
	},
}
