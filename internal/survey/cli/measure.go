package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"site-survey/internal/survey/advisor"
	"site-survey/internal/survey/geometry"
	"site-survey/internal/survey/models"
)

var distanceCmd = &cobra.Command{
	Use:   "distance LAT1 LON1 LAT2 LON2",
	Short: "Great-circle distance between two points in meters",
	Long: `Prints the haversine distance between two WGS84 points.

Put -- before the coordinates when any of them is negative.`,
	Example: "  surveyctl distance -- 31.0 -106.0 31.0001 -106.0",
	Args:    cobra.ExactArgs(4),
	RunE:    runDistance,
}

var suggestCmd = &cobra.Command{
	Use:   "suggest TYPE_A TYPE_B",
	Short: "Suggest a construction type for a pair of element types",
	Long: `Prints the construction type suggested for a connection between two
element types: Pole, Handhole, SpliceClosure or Building.`,
	Args: cobra.ExactArgs(2),
	RunE: runSuggest,
}

func init() {
	rootCmd.AddCommand(distanceCmd)
	rootCmd.AddCommand(suggestCmd)
}

func runDistance(cmd *cobra.Command, args []string) error {
	coords := make([]float64, len(args))
	for i, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("invalid coordinate %q", arg)
		}
		coords[i] = v
	}
	cmd.Printf("%.2f m\n", geometry.Distance(coords[0], coords[1], coords[2], coords[3]))
	return nil
}

func runSuggest(cmd *cobra.Command, args []string) error {
	a, err := models.ParseElementType(args[0])
	if err != nil {
		return err
	}
	b, err := models.ParseElementType(args[1])
	if err != nil {
		return err
	}
	cmd.Println(advisor.Suggest(a, b))
	return nil
}
