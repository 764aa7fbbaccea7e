package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"site-survey/internal/survey/models"
)

var (
	summaryElements    string
	summaryConnections string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarise a survey from its CSV exports",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().StringVarP(&summaryElements, "elements", "e", "", "elements CSV file (required)")
	summaryCmd.Flags().StringVarP(&summaryConnections, "connections", "c", "", "connections CSV file")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	elements, connections, err := loadSurvey(summaryElements, summaryConnections)
	if err != nil {
		return err
	}

	counts := make(map[models.ElementType]int, len(models.ElementTypes))
	for _, e := range elements {
		counts[e.Type]++
	}

	var total float64
	byConstruction := make(map[models.ConstructionType]float64, len(models.ConstructionTypes))
	for _, c := range connections {
		total += c.DistanceMeters
		byConstruction[c.ConstructionType] += c.DistanceMeters
	}

	lines := []string{
		titleStyle.Render(projectFromFilename(summaryElements)),
		"",
		row("Elements", fmt.Sprintf("%d", len(elements))),
	}
	for _, t := range models.ElementTypes {
		lines = append(lines, row("  "+string(t), fmt.Sprintf("%d", counts[t])))
	}
	lines = append(lines, row("Connections", fmt.Sprintf("%d", len(connections))))
	for _, c := range models.ConstructionTypes {
		if m, ok := byConstruction[c]; ok {
			lines = append(lines, row("  "+string(c), fmt.Sprintf("%.2f m", m)))
		}
	}
	lines = append(lines, row("Total distance", fmt.Sprintf("%.2f m", total)))

	cmd.Println(strings.Join(lines, "\n"))
	return nil
}
