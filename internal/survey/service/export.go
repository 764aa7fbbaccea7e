package service

import (
	"fmt"

	"site-survey/internal/survey/export"
	"site-survey/internal/survey/models"
)

// ============================================================
// Export
// ============================================================

type ExportKind string

const (
	ExportElementsCSV    ExportKind = "elements_csv"
	ExportConnectionsCSV ExportKind = "connections_csv"
	ExportKML            ExportKind = "kml"
)

// Document содержит готовый к скачиванию файл.
type Document struct {
	Kind        ExportKind
	Filename    string
	ContentType string
	Body        string
	Elements    int
	Connections int
}

// Export сериализует съемку. Пустой проект или пустая коллекция дают
// ErrConfiguration: кнопка выгрузки в этом состоянии неактивна.
func (s *Survey) Export(kind ExportKind) (Document, error) {
	if s.project == "" {
		return Document{}, fmt.Errorf("%w: project name is required for export", models.ErrConfiguration)
	}
	if len(s.elements) == 0 {
		return Document{}, fmt.Errorf("%w: nothing to export", models.ErrConfiguration)
	}

	doc := Document{Kind: kind, Elements: len(s.elements), Connections: len(s.connections)}
	var err error

	switch kind {
	case ExportElementsCSV:
		doc.Filename = export.ElementsFilename(s.project)
		doc.ContentType = "text/csv; charset=utf-8"
		doc.Connections = 0
		doc.Body, err = export.ElementsCSV(s.elements)
	case ExportConnectionsCSV:
		if len(s.connections) == 0 {
			return Document{}, fmt.Errorf("%w: no connections to export", models.ErrConfiguration)
		}
		doc.Filename = export.ConnectionsFilename(s.project)
		doc.ContentType = "text/csv; charset=utf-8"
		doc.Elements = 0
		doc.Body, err = export.ConnectionsCSV(s.connections)
	case ExportKML:
		doc.Filename = export.KMLFilename(s.project)
		doc.ContentType = "application/vnd.google-earth.kml+xml"
		doc.Body, err = export.KML(s.project, s.elements, s.connections)
	default:
		return Document{}, fmt.Errorf("%w: unknown export kind %q", models.ErrValidation, kind)
	}
	if err != nil {
		return Document{}, fmt.Errorf("export %s: %w", kind, err)
	}
	return doc, nil
}
