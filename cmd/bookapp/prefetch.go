package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FabianFlo/bookapp/internal/prefetch"
)

var prefetchCmd = &cobra.Command{
	Use:   "prefetch",
	Short: "Warm the cache for the configured genres",
	Long: `Prefetch fetches the configured genre listing pages and the details
of every work they mention, skipping records that are still fresh, then
rebuilds the offline search index.`,
	RunE: runPrefetch,
}

func runPrefetch(cmd *cobra.Command, args []string) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	a.monitor.Probe(cmd.Context())

	st := a.preloader.Run(cmd.Context())
	switch st.State {
	case prefetch.StateDone:
		fmt.Printf("Prefetch complete: %d pages, %d details cached\n", st.CachedPages, st.CachedDetails)
		return nil
	case prefetch.StateError:
		return fmt.Errorf("prefetch failed: %w", st.Err)
	default:
		// Offline no-op leaves the status untouched.
		fmt.Println("Prefetch skipped (offline)")
		return nil
	}
}
