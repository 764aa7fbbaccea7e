package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"site-survey/internal/survey/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExport(t *testing.T) {
	t.Run("disabled without project or elements", func(t *testing.T) {
		s := newSurvey(t, "")
		_, err := s.Export(ExportKML)
		assert.ErrorIs(t, err, models.ErrConfiguration)

		s.SetProject("Proj", "")
		_, err = s.Export(ExportElementsCSV)
		assert.ErrorIs(t, err, models.ErrConfiguration)
	})

	t.Run("connections csv needs connections", func(t *testing.T) {
		s := newSurvey(t, "Proj")
		mustAdd(t, s, models.Pole, 31, -106)

		_, err := s.Export(ExportConnectionsCSV)
		assert.ErrorIs(t, err, models.ErrConfiguration)
	})

	t.Run("documents carry filenames and counts", func(t *testing.T) {
		s := newSurvey(t, "Juarez")
		mustAdd(t, s, models.Pole, 31, -106)
		mustAdd(t, s, models.Handhole, 31.0001, -106)

		doc, err := s.Export(ExportElementsCSV)
		require.NoError(t, err)
		assert.Equal(t, "Juarez_elementos.csv", doc.Filename)
		assert.Equal(t, 2, doc.Elements)
		assert.True(t, strings.HasPrefix(doc.Body, "id,type,lat,lon,createdAt"))

		doc, err = s.Export(ExportConnectionsCSV)
		require.NoError(t, err)
		assert.Equal(t, "Juarez_conexiones.csv", doc.Filename)
		assert.Equal(t, 1, doc.Connections)
		assert.Contains(t, doc.Body, "Juarez_P001,Juarez_HH001,Duct,New,11.12")

		doc, err = s.Export(ExportKML)
		require.NoError(t, err)
		assert.Equal(t, "Juarez_survey.kml", doc.Filename)
		assert.Equal(t, "application/vnd.google-earth.kml+xml", doc.ContentType)
		assert.Contains(t, doc.Body, "<name>Juarez_HH001</name>")
	})

	t.Run("unknown kind", func(t *testing.T) {
		s := newSurvey(t, "Proj")
		mustAdd(t, s, models.Pole, 31, -106)

		_, err := s.Export(ExportKind("pdf"))
		assert.ErrorIs(t, err, models.ErrValidation)
	})
}

func TestFileStorage(t *testing.T) {
	root := t.TempDir()
	fs := NewFileStorage(root)

	path, err := fs.Save("North/Route", Document{Filename: "North_survey.kml", Body: "<kml/>"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "North_Route", "North_survey.kml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<kml/>", string(data))

	assert.Equal(t, filepath.Join(root, "_"), fs.ProjectDir(".."))
	assert.Equal(t, filepath.Join(root, "p", "x.csv"), fs.Path("p", "../../x.csv"))
}
