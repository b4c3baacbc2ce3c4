package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "Manage saved searches",
	Long:  `Saved searches are named queries kept in the local cache database.`,
}

var savedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved searches",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		searches, err := db.ListSavedSearches()
		if err != nil {
			return err
		}
		if len(searches) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no saved searches")
			return nil
		}
		for _, ss := range searches {
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", ss.Name, ss.Query)
		}
		return nil
	},
}

var savedAddCmd = &cobra.Command{
	Use:   "add <name> <query...>",
	Short: "Save a named search",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		return db.SaveSearch(args[0], strings.Join(args[1:], " "))
	},
}

var savedRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Delete a saved search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		return db.DeleteSavedSearch(args[0])
	},
}

var savedRunCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Run a saved search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}

		ss, err := db.GetSavedSearch(args[0])
		db.Close()
		if err != nil {
			return err
		}
		return runSearch(cmd, strings.Fields(ss.Query))
	},
}

func init() {
	rootCmd.AddCommand(savedCmd)
	savedCmd.AddCommand(savedListCmd)
	savedCmd.AddCommand(savedAddCmd)
	savedCmd.AddCommand(savedRmCmd)
	savedCmd.AddCommand(savedRunCmd)
}
