package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var usesJSON bool

var usesCmd = &cobra.Command{
	Use:   "uses",
	Short: "List the selectable land-use types",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()

		uses, err := repo.ListActiveUseTypes(cmd.Context())
		if err != nil {
			return err
		}

		if usesJSON {
			return printJSON(uses)
		}
		for _, u := range uses {
			fmt.Printf("%-24s %-14s %s\n", u.Code, u.Category, u.Label)
		}
		return nil
	},
}

func init() {
	usesCmd.Flags().BoolVar(&usesJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(usesCmd)
}
