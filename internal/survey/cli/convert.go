package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"site-survey/internal/survey/export"
	"site-survey/internal/survey/models"
	"site-survey/internal/survey/service"
)

var (
	convertElements    string
	convertConnections string
	convertProject     string
	convertOut         string
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Build a KML from survey CSV exports",
	Long: `Reads an elements CSV and, optionally, a connections CSV and writes the
styled KML that the survey service would have produced.

Without --out the KML is written to stdout. With --out it is saved as
<out>/<project>/<project>_survey.kml.`,
	Args: cobra.NoArgs,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertElements, "elements", "e", "", "elements CSV file (required)")
	convertCmd.Flags().StringVarP(&convertConnections, "connections", "c", "", "connections CSV file")
	convertCmd.Flags().StringVarP(&convertProject, "project", "p", "", "project name (derived from the elements file name by default)")
	convertCmd.Flags().StringVarP(&convertOut, "out", "o", "", "export directory")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, _ []string) error {
	elements, connections, err := loadSurvey(convertElements, convertConnections)
	if err != nil {
		return err
	}

	project := convertProject
	if project == "" {
		project = projectFromFilename(convertElements)
	}

	body, err := export.KML(project, elements, connections)
	if err != nil {
		return err
	}

	if convertOut == "" {
		cmd.Print(body)
		return nil
	}

	path, err := service.NewFileStorage(convertOut).Save(project, service.Document{
		Kind:        service.ExportKML,
		Filename:    export.KMLFilename(project),
		ContentType: "application/vnd.google-earth.kml+xml",
		Body:        body,
		Elements:    len(elements),
		Connections: len(connections),
	})
	if err != nil {
		return err
	}
	cmd.Println(successStyle.Render(fmt.Sprintf("Wrote %s (%d elements, %d connections)", path, len(elements), len(connections))))
	return nil
}

// loadSurvey читает элементы и, если путь задан, связи.
func loadSurvey(elementsPath, connectionsPath string) ([]models.Element, []models.Connection, error) {
	if elementsPath == "" {
		return nil, nil, errors.New("--elements is required")
	}

	f, err := os.Open(elementsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open elements: %w", err)
	}
	defer f.Close()

	elements, err := export.ParseElementsCSV(f)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", elementsPath, err)
	}

	if connectionsPath == "" {
		return elements, nil, nil
	}

	g, err := os.Open(connectionsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open connections: %w", err)
	}
	defer g.Close()

	connections, err := export.ParseConnectionsCSV(g)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", connectionsPath, err)
	}
	return elements, connections, nil
}

// projectFromFilename снимает суффикс "_elementos.csv" или расширение.
func projectFromFilename(path string) string {
	base := filepath.Base(path)
	if name, ok := strings.CutSuffix(base, "_elementos.csv"); ok && name != "" {
		return name
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
