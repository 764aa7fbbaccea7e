// Package cli реализует surveyctl: офлайн-инструменты над выгрузками съемки.
package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "surveyctl",
	Short: "Offline tools for site survey exports",
	Long: `surveyctl works with the CSV and KML files handed off by the site survey service.

It can rebuild a KML from the elements and connections CSVs, summarise a survey,
measure distances, suggest construction types and list the handoff journal.`,
	SilenceUsage: true,
}

// Execute запускает корневую команду.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion задается из main при сборке.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}
