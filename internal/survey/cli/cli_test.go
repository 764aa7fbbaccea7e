package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-survey/internal/survey/export"
	"site-survey/internal/survey/models"
	"site-survey/internal/survey/repository"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	convertElements, convertConnections, convertProject, convertOut = "", "", "", ""
	summaryElements, summaryConnections = "", ""
	handoffsDB, handoffsJSON = "data/db/survey.db", false

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// writeFixtures пишет пару CSV-выгрузок проекта Demo.
func writeFixtures(t *testing.T) (string, string) {
	t.Helper()
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.Local)
	elements := []models.Element{
		{ID: "Demo_P001", Type: models.Pole, Lat: 31, Lon: -106, CreatedAt: created, Attributes: map[string]string{"owner": "CFE"}},
		{ID: "Demo_HH001", Type: models.Handhole, Lat: 31.0001, Lon: -106, CreatedAt: created, Attributes: map[string]string{}},
	}
	connections := []models.Connection{
		{ElementA: "Demo_P001", ElementB: "Demo_HH001", ConstructionType: models.Duct, InfrastructureStatus: models.New, DistanceMeters: 11.12},
	}

	dir := t.TempDir()
	elemCSV, err := export.ElementsCSV(elements)
	require.NoError(t, err)
	connCSV, err := export.ConnectionsCSV(connections)
	require.NoError(t, err)

	elemPath := filepath.Join(dir, export.ElementsFilename("Demo"))
	connPath := filepath.Join(dir, export.ConnectionsFilename("Demo"))
	require.NoError(t, os.WriteFile(elemPath, []byte(elemCSV), 0o644))
	require.NoError(t, os.WriteFile(connPath, []byte(connCSV), 0o644))
	return elemPath, connPath
}

func TestVersionCmd(t *testing.T) {
	original := version
	version = "1.2.3"
	defer func() { version = original }()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "surveyctl version 1.2.3")
}

func TestDistanceCmd(t *testing.T) {
	out, err := execute(t, "distance", "--", "31", "-106", "31.0001", "-106")
	require.NoError(t, err)
	assert.Contains(t, out, "11.12 m")

	_, err = execute(t, "distance", "--", "31", "west", "31", "-106")
	assert.Error(t, err)

	_, err = execute(t, "distance", "31")
	assert.Error(t, err)
}

func TestSuggestCmd(t *testing.T) {
	tests := []struct {
		a, b string
		want string
	}{
		{"Pole", "Handhole", "Duct"},
		{"Pole", "Pole", "AerialRoute"},
		{"Building", "SpliceClosure", "AerialRoute"},
	}
	for _, tt := range tests {
		t.Run(tt.a+"-"+tt.b, func(t *testing.T) {
			out, err := execute(t, "suggest", tt.a, tt.b)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}

	_, err := execute(t, "suggest", "Tower", "Pole")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestConvertCmd(t *testing.T) {
	elemPath, connPath := writeFixtures(t)

	t.Run("writes kml to stdout", func(t *testing.T) {
		out, err := execute(t, "convert", "-e", elemPath, "-c", connPath)
		require.NoError(t, err)
		assert.Contains(t, out, "<name>Demo</name>")
		assert.Contains(t, out, "<name>Demo_P001 - Demo_HH001</name>")
		assert.Contains(t, out, "#line-Duct")
	})

	t.Run("saves into export directory", func(t *testing.T) {
		outDir := t.TempDir()
		out, err := execute(t, "convert", "-e", elemPath, "--project", "Field", "--out", outDir)
		require.NoError(t, err)
		assert.Contains(t, out, "2 elements, 0 connections")

		data, err := os.ReadFile(filepath.Join(outDir, "Field", "Field_survey.kml"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "<name>Field</name>")
		assert.NotContains(t, string(data), "<LineString>")
	})

	t.Run("requires elements", func(t *testing.T) {
		_, err := execute(t, "convert")
		assert.Error(t, err)
	})
}

func TestSummaryCmd(t *testing.T) {
	elemPath, connPath := writeFixtures(t)

	out, err := execute(t, "summary", "-e", elemPath, "-c", connPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Demo")
	assert.Contains(t, out, "Pole")
	assert.Contains(t, out, "Total distance")
	assert.Contains(t, out, "11.12 m")
}

func TestHandoffsCmd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	db, err := repository.OpenSQLite(dbPath)
	require.NoError(t, err)
	repo := repository.New(db)
	require.NoError(t, repo.Init(context.Background()))
	_, err = repo.Record(context.Background(), repository.Handoff{
		SessionID: "s1", Project: "Demo", Kind: "kml", Filename: "Demo_survey.kml",
		Elements: 2, Connections: 1, Bytes: 512,
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := execute(t, "handoffs", "Demo", "--db", dbPath, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"filename": "Demo_survey.kml"`)

	out, err = execute(t, "handoffs", "Other", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No handoffs found.")
}
