package export

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"site-survey/internal/survey/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleElements() []models.Element {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)
	return []models.Element{
		{
			ID:         "Proj_P001",
			Type:       models.Pole,
			Lat:        31.6904,
			Lon:        -106.4245,
			CreatedAt:  created,
			Attributes: map[string]string{"owner": "CFE", "height_m": "9"},
			Photo:      []byte{0xff, 0xd8, 0xff},
		},
		{
			ID:         "Proj_HH001",
			Type:       models.Handhole,
			Lat:        31.690512345,
			Lon:        -106.424123456,
			CreatedAt:  created.Add(time.Minute),
			Attributes: map[string]string{"installed_in": "Banqueta", "owner": "Municipio, Juarez"},
		},
		{
			ID:        "Proj_BLD001",
			Type:      models.Building,
			Lat:       31.6907,
			Lon:       -106.4239,
			CreatedAt: created.Add(2 * time.Minute),
		},
	}
}

func TestElementsCSV(t *testing.T) {
	t.Run("header has fixed columns then sorted attribute keys", func(t *testing.T) {
		out, err := ElementsCSV(sampleElements())
		require.NoError(t, err)

		records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 4)

		assert.Equal(t, []string{"id", "type", "lat", "lon", "createdAt", "height_m", "installed_in", "owner"}, records[0])
		assert.Equal(t, []string{"Proj_P001", "Pole", "31.6904", "-106.4245", "2026-03-14 09:30:00", "9", "", "CFE"}, records[1])
		assert.Equal(t, "Municipio, Juarez", records[2][7])
		assert.Equal(t, []string{"", "", ""}, records[3][5:])
	})

	t.Run("photo is never exported", func(t *testing.T) {
		out, err := ElementsCSV(sampleElements())
		require.NoError(t, err)
		assert.NotContains(t, out, "photo")
	})

	t.Run("empty input yields header only", func(t *testing.T) {
		out, err := ElementsCSV(nil)
		require.NoError(t, err)
		assert.Equal(t, "id,type,lat,lon,createdAt\n", out)
	})
}

func TestElementsCSVRoundTrip(t *testing.T) {
	in := sampleElements()

	out, err := ElementsCSV(in)
	require.NoError(t, err)

	parsed, err := ParseElementsCSV(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, parsed, len(in))

	for i := range in {
		assert.Equal(t, in[i].ID, parsed[i].ID)
		assert.Equal(t, in[i].Type, parsed[i].Type)
		assert.Equal(t, in[i].Lat, parsed[i].Lat)
		assert.Equal(t, in[i].Lon, parsed[i].Lon)
		assert.True(t, in[i].CreatedAt.Equal(parsed[i].CreatedAt))
		assert.Equal(t, len(in[i].Attributes), len(parsed[i].Attributes))
		for k, v := range in[i].Attributes {
			assert.Equal(t, v, parsed[i].Attributes[k])
		}
		assert.Nil(t, parsed[i].Photo)
	}
}

func TestParseElementsCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"wrong header", "name,type,lat,lon,createdAt\n"},
		{"unknown type", "id,type,lat,lon,createdAt\nX_P001,Poste,1,2,\n"},
		{"bad latitude", "id,type,lat,lon,createdAt\nX_P001,Pole,north,2,\n"},
		{"bad timestamp", "id,type,lat,lon,createdAt\nX_P001,Pole,1,2,yesterday\n"},
		{"ragged rows", "id,type,lat,lon,createdAt\nX_P001,Pole\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseElementsCSV(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestConnectionsCSV(t *testing.T) {
	conns := []models.Connection{
		{ElementA: "Proj_P001", ElementB: "Proj_HH001", ConstructionType: models.Duct, InfrastructureStatus: models.New, DistanceMeters: 11.119492664},
		{ElementA: "Proj_HH001", ElementB: "Proj_BLD001", ConstructionType: models.ADSS, InfrastructureStatus: models.Existing, DistanceMeters: 0.005},
	}

	out, err := ConnectionsCSV(conns)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "elementA,elementB,constructionType,infrastructureStatus,distanceMeters", lines[0])
	assert.Equal(t, "Proj_P001,Proj_HH001,Duct,New,11.12", lines[1])
	assert.Equal(t, "Proj_HH001,Proj_BLD001,ADSS,Existing,0.01", lines[2])

	parsed, err := ParseConnectionsCSV(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	assert.Equal(t, models.Duct, parsed[0].ConstructionType)
	assert.Equal(t, models.Existing, parsed[1].InfrastructureStatus)
	assert.InDelta(t, 11.12, parsed[0].DistanceMeters, 1e-9)
}

func TestParseConnectionsCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"reordered header", "elementB,elementA,constructionType,infrastructureStatus,distanceMeters\nA,B,Duct,New,1\n"},
		{"foreign header", "from,to,kind,status,meters\nA,B,Duct,New,1\n"},
		{"short header", "elementA,elementB,constructionType,infrastructureStatus\n"},
		{"unknown construction", "elementA,elementB,constructionType,infrastructureStatus,distanceMeters\nA,B,Tunnel,New,1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConnectionsCSV(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestFilenames(t *testing.T) {
	assert.Equal(t, "Juarez_elementos.csv", ElementsFilename("Juarez"))
	assert.Equal(t, "Juarez_conexiones.csv", ConnectionsFilename("Juarez"))
	assert.Equal(t, "Juarez_survey.kml", KMLFilename("Juarez"))
}
