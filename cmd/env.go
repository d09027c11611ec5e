package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/lotefacil/feasibility-cli/internal/rules"
	"github.com/lotefacil/feasibility-cli/internal/spatial"
)

// openRepository selects the rule store backend from config.
func openRepository(ctx context.Context) (rules.Repository, error) {
	switch cfg.Rules.Driver {
	case "postgres":
		return rules.NewPostgres(ctx, cfg.Rules.DatabaseURL)
	case "sqlite":
		return rules.NewSQLite(cfg.Rules.SQLitePath)
	case "file":
		return rules.NewFileRepository(cfg.Rules.FilePath)
	default:
		return nil, eris.Errorf("unknown rules driver %q", cfg.Rules.Driver)
	}
}

// buildResolver loads both geometry layers per config.
func buildResolver() (*spatial.Resolver, error) {
	return spatial.BuildResolver(cfg.Geo.ZonesPath, cfg.Geo.StreetsPath, cfg.Resolver.StreetMaxDistanceM)
}

// printJSON writes v to stdout, indented.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
