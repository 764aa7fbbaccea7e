package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strconv"
	"time"

	"site-survey/internal/survey/models"
)

// ============================================================
// CSV Export
// ============================================================

const TimeLayout = "2006-01-02 15:04:05"

var (
	elementColumns    = []string{"id", "type", "lat", "lon", "createdAt"}
	connectionColumns = []string{"elementA", "elementB", "constructionType", "infrastructureStatus", "distanceMeters"}
)

// ElementsCSV пишет по строке на элемент: фиксированные колонки, затем
// атрибуты в лексикографическом порядке. Фото не выгружается.
func ElementsCSV(elements []models.Element) (string, error) {
	keys := attributeKeys(elements)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(append(append([]string(nil), elementColumns...), keys...)); err != nil {
		return "", err
	}

	for _, e := range elements {
		row := make([]string, 0, len(elementColumns)+len(keys))
		row = append(row,
			e.ID,
			string(e.Type),
			formatCoordinate(e.Lat),
			formatCoordinate(e.Lon),
			formatTime(e.CreatedAt),
		)
		for _, k := range keys {
			row = append(row, e.Attributes[k])
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ConnectionsCSV пишет связи с дистанцией, округленной до сантиметров.
func ConnectionsCSV(connections []models.Connection) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(connectionColumns); err != nil {
		return "", err
	}

	for _, c := range connections {
		row := []string{
			c.ElementA,
			c.ElementB,
			string(c.ConstructionType),
			string(c.InfrastructureStatus),
			strconv.FormatFloat(c.DistanceMeters, 'f', 2, 64),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ============================================================
// CSV Import
// ============================================================

// ParseElementsCSV читает выгрузку ElementsCSV обратно в элементы.
func ParseElementsCSV(r io.Reader) ([]models.Element, error) {
	records, err := readAll(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	for i, name := range elementColumns {
		if i >= len(header) || header[i] != name {
			return nil, fmt.Errorf("%w: elements csv must start with columns %v", models.ErrValidation, elementColumns)
		}
	}
	attrKeys := header[len(elementColumns):]

	elements := make([]models.Element, 0, len(records)-1)
	for n, rec := range records[1:] {
		line := n + 2
		t, err := models.ParseElementType(rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		lat, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: lat %q", line, models.ErrValidation, rec[2])
		}
		lon, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: lon %q", line, models.ErrValidation, rec[3])
		}
		created, err := parseTime(rec[4])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: createdAt %q", line, models.ErrValidation, rec[4])
		}

		e := models.Element{
			ID:         rec[0],
			Type:       t,
			Lat:        lat,
			Lon:        lon,
			CreatedAt:  created,
			Attributes: make(map[string]string),
		}
		for i, k := range attrKeys {
			if v := rec[len(elementColumns)+i]; v != "" {
				e.Attributes[k] = v
			}
		}
		elements = append(elements, e)
	}
	return elements, nil
}

// ParseConnectionsCSV читает выгрузку ConnectionsCSV.
func ParseConnectionsCSV(r io.Reader) ([]models.Connection, error) {
	records, err := readAll(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	if !slices.Equal(records[0], connectionColumns) {
		return nil, fmt.Errorf("%w: connections csv must have columns %v", models.ErrValidation, connectionColumns)
	}

	connections := make([]models.Connection, 0, len(records)-1)
	for n, rec := range records[1:] {
		line := n + 2
		ct, err := models.ParseConstructionType(rec[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		st, err := models.ParseInfrastructureStatus(rec[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		dist, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: distance %q", line, models.ErrValidation, rec[4])
		}
		connections = append(connections, models.Connection{
			ElementA:             rec[0],
			ElementB:             rec[1],
			ConstructionType:     ct,
			InfrastructureStatus: st,
			DistanceMeters:       dist,
		})
	}
	return connections, nil
}

// ============================================================
// Helpers
// ============================================================

func attributeKeys(elements []models.Element) []string {
	set := make(map[string]struct{})
	for _, e := range elements {
		for k := range e.Attributes {
			if !models.IsReservedKey(k) {
				set[k] = struct{}{}
			}
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func readAll(r io.Reader) ([][]string, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, fmt.Errorf("%w: %v", models.ErrValidation, perr)
		}
		return nil, err
	}
	return records, nil
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(TimeLayout, s, time.Local)
}
