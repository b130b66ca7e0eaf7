package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FabianFlo/bookapp/internal/storage"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Manage custom book lists",
}

func init() {
	listCmd.AddCommand(listLsCmd)
	listCmd.AddCommand(listCreateCmd)
	listCmd.AddCommand(listShowCmd)
	listCmd.AddCommand(listAddCmd)
	listCmd.AddCommand(listRemoveCmd)
	listCmd.AddCommand(listRmCmd)

	listAddCmd.Flags().StringVar(&addTitle, "title", "", "book title")
	listAddCmd.Flags().StringVar(&addAuthor, "author", "", "author name")
	listAddCmd.Flags().Int64Var(&addCoverID, "cover-id", 0, "cover image ID")
	listAddCmd.Flags().Int64Var(&addYear, "year", 0, "first publish year")
}

var listLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "Show all lists",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		lists, err := a.store.Lists(cmd.Context())
		if err != nil {
			return err
		}
		if len(lists) == 0 {
			fmt.Println("No lists.")
			return nil
		}
		for _, l := range lists {
			fmt.Printf("%4d  %s  (created %s)\n", l.ID, l.Name, l.CreatedAt.Format("2006-01-02"))
		}
		return nil
	},
}

var listCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		name := strings.Join(args, " ")
		id, err := a.store.CreateList(cmd.Context(), name)
		if errors.Is(err, storage.ErrListNameTaken) {
			return fmt.Errorf("a list named %q already exists", name)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Created list %d: %s\n", id, name)
		return nil
	},
}

var listShowCmd = &cobra.Command{
	Use:   "show <list-id>",
	Short: "Show a list's books",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid list id %q", args[0])
		}
		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		books, err := a.store.ListBooks(cmd.Context(), id)
		if err != nil {
			return err
		}
		if len(books) == 0 {
			fmt.Println("List is empty.")
			return nil
		}
		for _, b := range books {
			line := b.Title
			if b.Author != "" {
				line += " - " + b.Author
			}
			fmt.Printf("%-24s %s\n", b.WorkKey, line)
		}
		return nil
	},
}

var (
	addTitle   string
	addAuthor  string
	addCoverID int64
	addYear    int64
)

var listAddCmd = &cobra.Command{
	Use:   "add <list-id> <work-key>",
	Short: "Add a book to a list",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid list id %q", args[0])
		}
		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		book := storage.ListBook{
			WorkKey: args[1],
			Title:   addTitle,
			Author:  addAuthor,
		}
		if book.Title == "" {
			book.Title = args[1]
		}
		if addCoverID != 0 {
			book.CoverID = &addCoverID
		}
		if addYear != 0 {
			book.FirstPublishYear = &addYear
		}

		outcome, err := a.store.AddBookToList(cmd.Context(), id, book)
		if err != nil {
			return err
		}
		if outcome == storage.Duplicate {
			fmt.Println("Already in list.")
			return nil
		}
		fmt.Println("Added.")
		return nil
	},
}

var listRemoveCmd = &cobra.Command{
	Use:   "remove <list-id> <work-key>",
	Short: "Remove a book from a list",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid list id %q", args[0])
		}
		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.store.RemoveBookFromList(cmd.Context(), id, args[1]); err != nil {
			return err
		}
		fmt.Println("Removed.")
		return nil
	},
}

var listRmCmd = &cobra.Command{
	Use:   "rm <list-id>",
	Short: "Delete a list and its books",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid list id %q", args[0])
		}
		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.store.DeleteList(cmd.Context(), id); errors.Is(err, storage.ErrListNotFound) {
			return fmt.Errorf("no list with id %d", id)
		} else if err != nil {
			return err
		}
		fmt.Println("Deleted.")
		return nil
	},
}
