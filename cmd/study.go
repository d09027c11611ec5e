package main

import (
	"github.com/spf13/cobra"

	"github.com/lotefacil/feasibility-cli/internal/engine"
	"github.com/lotefacil/feasibility-cli/internal/rules"
)

var studyFlags struct {
	lat, lon           float64
	useCode            string
	frontage, depth    float64
	corner, twoFronts  bool
	usableArea         float64
	dwellingUnits      float64
	seats, beds, rooms float64
	unitArea           float64
	nearTransit        bool
	localStreet        bool
	simulate           bool
	desiredArea        float64
	desiredFloors      int
}

var studyCmd = &cobra.Command{
	Use:   "study",
	Short: "Run a full feasibility study for a lot, use, and coordinate",
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := buildResolver()
		if err != nil {
			return err
		}
		repo, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()

		req := engine.StudyRequest{
			Lat:     studyFlags.lat,
			Lon:     studyFlags.lon,
			UseCode: studyFlags.useCode,
			Lot: engine.Lot{
				FrontageM: studyFlags.frontage,
				DepthM:    studyFlags.depth,
				Corner:    studyFlags.corner,
				TwoFronts: studyFlags.twoFronts,
			},
			Metrics: map[rules.ParkingMetric]float64{
				rules.MetricUsableArea:    studyFlags.usableArea,
				rules.MetricDwellingUnits: studyFlags.dwellingUnits,
				rules.MetricSeats:         studyFlags.seats,
				rules.MetricBeds:          studyFlags.beds,
				rules.MetricLodgingUnits:  studyFlags.rooms,
			},
			Parking: engine.ParkingOptions{
				NearTransit: studyFlags.nearTransit,
				LocalStreet: studyFlags.localStreet,
				UnitAreaM2:  studyFlags.unitArea,
			},
		}
		if studyFlags.simulate {
			req.Simulation = &engine.SimulationInput{
				DesiredTotalAreaM2: studyFlags.desiredArea,
				DesiredFloors:      studyFlags.desiredFloors,
				UsableAreaM2:       studyFlags.usableArea,
			}
		}

		result, err := engine.NewStudy(resolver, repo).Run(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	f := studyCmd.Flags()
	f.Float64Var(&studyFlags.lat, "lat", 0, "latitude (WGS84)")
	f.Float64Var(&studyFlags.lon, "lon", 0, "longitude (WGS84)")
	f.StringVar(&studyFlags.useCode, "use", "", "use type code")
	f.Float64Var(&studyFlags.frontage, "frontage", 0, "lot frontage in meters")
	f.Float64Var(&studyFlags.depth, "depth", 0, "lot depth in meters")
	f.BoolVar(&studyFlags.corner, "corner", false, "corner lot")
	f.BoolVar(&studyFlags.twoFronts, "two-fronts", false, "corner lot with two fronts")
	f.Float64Var(&studyFlags.usableArea, "usable-area", 0, "usable floor area in m2")
	f.Float64Var(&studyFlags.dwellingUnits, "units", 0, "dwelling unit count")
	f.Float64Var(&studyFlags.seats, "seats", 0, "seat count")
	f.Float64Var(&studyFlags.beds, "beds", 0, "bed count")
	f.Float64Var(&studyFlags.rooms, "rooms", 0, "lodging unit count")
	f.Float64Var(&studyFlags.unitArea, "unit-area", 0, "average dwelling unit area in m2")
	f.BoolVar(&studyFlags.nearTransit, "near-transit", false, "apply the rapid-transit parking reduction")
	f.BoolVar(&studyFlags.localStreet, "local-street", false, "force the local-street parking exemption check")
	f.BoolVar(&studyFlags.simulate, "simulate", false, "include the lay-person simulation")
	f.Float64Var(&studyFlags.desiredArea, "desired-area", 0, "simulation: desired total built area in m2 (0 = zone maxima)")
	f.IntVar(&studyFlags.desiredFloors, "floors", 0, "simulation: desired floor count (0 = estimated)")
	studyCmd.MarkFlagRequired("lat")
	studyCmd.MarkFlagRequired("lon")
	studyCmd.MarkFlagRequired("use")
	studyCmd.MarkFlagRequired("frontage")
	studyCmd.MarkFlagRequired("depth")
	rootCmd.AddCommand(studyCmd)
}
