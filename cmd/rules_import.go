package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lotefacil/feasibility-cli/internal/rules"
)

var rulesImportSourceRef string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage the rule store",
}

var rulesImportCmd = &cobra.Command{
	Use:   "import <spreadsheet.xlsx>",
	Short: "Import zone rules from a municipal annex spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()

		writer, ok := repo.(rules.ZoneRuleWriter)
		if !ok {
			return eris.Errorf("rules driver %q is read-only", cfg.Rules.Driver)
		}

		if err := repo.Migrate(cmd.Context()); err != nil {
			return err
		}

		res, err := rules.ImportZoneRulesXLSX(cmd.Context(), writer, args[0], rulesImportSourceRef)
		if err != nil {
			return err
		}

		zap.L().Info("import finished",
			zap.Int("rows", res.Rows),
			zap.Int("imported", res.Imported),
			zap.Int("skipped", res.Skipped))
		return printJSON(res)
	},
}

func init() {
	rulesImportCmd.Flags().StringVar(&rulesImportSourceRef, "source-ref", "", "source reference recorded on imported rows")
	rulesCmd.AddCommand(rulesImportCmd)
	rootCmd.AddCommand(rulesCmd)
}
