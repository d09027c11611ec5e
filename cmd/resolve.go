package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/lotefacil/feasibility-cli/internal/spatial"
)

var (
	resolveLat float64
	resolveLon float64
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a coordinate to its zone and nearest street",
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := buildResolver()
		if err != nil {
			return err
		}

		loc := resolver.Resolve(resolveLat, resolveLon)
		if loc.Zone == nil {
			return eris.Wrapf(spatial.ErrZoneNotFound, "point (%.6f, %.6f)", resolveLat, resolveLon)
		}
		return printJSON(loc)
	},
}

func init() {
	resolveCmd.Flags().Float64Var(&resolveLat, "lat", 0, "latitude (WGS84)")
	resolveCmd.Flags().Float64Var(&resolveLon, "lon", 0, "longitude (WGS84)")
	resolveCmd.MarkFlagRequired("lat")
	resolveCmd.MarkFlagRequired("lon")
	rootCmd.AddCommand(resolveCmd)
}
