package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchPage int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the catalog, falling back to the cache offline",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchPage, "page", 1, "result page")
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	query := strings.Join(args, " ")
	a.monitor.Probe(ctx)

	if a.monitor.Online() {
		doc, err := a.catalog.Search(ctx, query, searchPage)
		if err == nil {
			items := doc.Items()
			if data, merr := json.Marshal(items); merr == nil {
				if err := a.store.UpsertSearchResults(ctx, query, searchPage, string(data)); err != nil {
					logger.Warn("search cache write failed", "error", err)
				}
			}
			printItems(items)
			return nil
		}
		logger.Warn("live search failed", "error", err)
	}

	// Offline: exact cached page, then similar cached pages, then the
	// full-text index.
	if data, ok, err := a.store.SearchResults(ctx, query, searchPage); err == nil && ok {
		var items []any
		if json.Unmarshal([]byte(data), &items) == nil {
			printItems(items)
			return nil
		}
	}

	if items, err := a.store.SearchSimilarOffline(ctx, query); err == nil && len(items) > 0 {
		fmt.Println("(similar cached results)")
		for _, item := range items {
			printItem(item)
		}
		return nil
	}

	hits, err := a.index.Search(query, 25)
	if err != nil {
		return fmt.Errorf("offline search: %w", err)
	}
	if len(hits) == 0 {
		fmt.Println("No results.")
		return nil
	}
	fmt.Println("(offline index results)")
	for _, hit := range hits {
		fmt.Printf("%-24s %s  %s\n", hit.WorkKey, hit.Title, strings.Join(hit.Authors, ", "))
	}
	return nil
}

func printItems(items []any) {
	if len(items) == 0 {
		fmt.Println("No results.")
		return
	}
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		printItem(m)
	}
}

func printItem(m map[string]any) {
	key, _ := m["key"].(string)
	title, _ := m["title"].(string)
	fmt.Printf("%-24s %s\n", key, title)
}
