package export

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"html"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"site-survey/internal/survey/models"
)

// ============================================================
// KML Styles
// ============================================================

// Цвета в формате KML: aabbggrr.
const (
	colorYellow = "ff00ffff"
	colorGreen  = "ff008000"
	colorOrange = "ff00a5ff"
	colorBlue   = "ffff0000"
	colorRed    = "ff0000ff"
)

type ElementStyle struct {
	Color string
	Icon  string
	Scale float64
}

type LineStyle struct {
	Color string
	Width float64
}

var ElementStyles = map[models.ElementType]ElementStyle{
	models.Pole:          {Color: colorYellow, Icon: "http://maps.google.com/mapfiles/kml/pushpin/ylw-pushpin.png", Scale: 2.0},
	models.Handhole:      {Color: colorYellow, Icon: "http://maps.google.com/mapfiles/kml/shapes/placemark_square.png", Scale: 1.0},
	models.SpliceClosure: {Color: colorGreen, Icon: "http://maps.google.com/mapfiles/kml/shapes/target.png", Scale: 1.0},
	models.Building:      {Color: colorOrange, Icon: "http://maps.google.com/mapfiles/kml/shapes/homegardenbusiness.png", Scale: 1.0},
}

var LineStyles = map[models.ConstructionType]LineStyle{
	models.Duct:        {Color: colorBlue, Width: 4},
	models.AerialRoute: {Color: colorGreen, Width: 4},
	models.ADSS:        {Color: colorRed, Width: 4},
}

func ElementStyleID(t models.ElementType) string { return "element-" + string(t) }

func LineStyleID(c models.ConstructionType) string { return "line-" + string(c) }

// ============================================================
// KML Document
// ============================================================

const kmlNamespace = "http://www.opengis.net/kml/2.2"

type kmlRoot struct {
	XMLName  xml.Name    `xml:"kml"`
	Xmlns    string      `xml:"xmlns,attr"`
	Document kmlDocument `xml:"Document"`
}

type kmlDocument struct {
	Name       string         `xml:"name"`
	Styles     []kmlStyle     `xml:"Style"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlStyle struct {
	ID        string        `xml:"id,attr"`
	IconStyle *kmlIconStyle `xml:"IconStyle,omitempty"`
	LineStyle *kmlLineStyle `xml:"LineStyle,omitempty"`
}

type kmlIconStyle struct {
	Color string  `xml:"color"`
	Scale float64 `xml:"scale"`
	Href  string  `xml:"Icon>href"`
}

type kmlLineStyle struct {
	Color string  `xml:"color"`
	Width float64 `xml:"width"`
}

type kmlPlacemark struct {
	Name        string         `xml:"name"`
	Description cdata          `xml:"description"`
	StyleURL    string         `xml:"styleUrl"`
	Point       *kmlGeometry   `xml:"Point,omitempty"`
	LineString  *kmlLineString `xml:"LineString,omitempty"`
}

type cdata struct {
	Text string `xml:",cdata"`
}

type kmlGeometry struct {
	Coordinates string `xml:"coordinates"`
}

type kmlLineString struct {
	Tessellate  int    `xml:"tessellate"`
	Coordinates string `xml:"coordinates"`
}

// KML строит документ: по метке на элемент и по линии на связь.
// Связи с неразрешимыми концами пропускаются.
func KML(name string, elements []models.Element, connections []models.Connection) (string, error) {
	doc := kmlDocument{Name: name}

	for _, t := range models.ElementTypes {
		st := ElementStyles[t]
		doc.Styles = append(doc.Styles, kmlStyle{
			ID:        ElementStyleID(t),
			IconStyle: &kmlIconStyle{Color: st.Color, Scale: st.Scale, Href: st.Icon},
		})
	}
	for _, c := range models.ConstructionTypes {
		st := LineStyles[c]
		doc.Styles = append(doc.Styles, kmlStyle{
			ID:        LineStyleID(c),
			LineStyle: &kmlLineStyle{Color: st.Color, Width: st.Width},
		})
	}

	byID := make(map[string]models.Element, len(elements))
	for _, e := range elements {
		byID[e.ID] = e
		doc.Placemarks = append(doc.Placemarks, kmlPlacemark{
			Name:        e.ID,
			Description: cdata{Text: elementDescription(e)},
			StyleURL:    "#" + ElementStyleID(e.Type),
			Point:       &kmlGeometry{Coordinates: coordinate(e)},
		})
	}

	for _, c := range connections {
		a, okA := byID[c.ElementA]
		b, okB := byID[c.ElementB]
		if !okA || !okB {
			continue
		}
		doc.Placemarks = append(doc.Placemarks, kmlPlacemark{
			Name:        fmt.Sprintf("%s - %s", c.ElementA, c.ElementB),
			Description: cdata{Text: connectionDescription(c)},
			StyleURL:    "#" + LineStyleID(c.ConstructionType),
			LineString: &kmlLineString{
				Tessellate:  1,
				Coordinates: coordinate(a) + " " + coordinate(b),
			},
		})
	}

	out, err := xml.MarshalIndent(kmlRoot{Xmlns: kmlNamespace, Document: doc}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal kml: %w", err)
	}
	return xml.Header + string(out) + "\n", nil
}

// ============================================================
// Descriptions
// ============================================================

const (
	rowStyle   = `style="border-bottom: 2px solid #ddd;"`
	keyStyle   = `style="padding: 12px; font-weight: bold; background-color: #f2f2f2; width: 40%; font-size: 18px;"`
	valueStyle = `style="padding: 12px; font-size: 18px;"`
)

func elementDescription(e models.Element) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial; font-size: 20px; max-width: 800px;">`)
	fmt.Fprintf(&b, `<h1 style="color: #2c3e50; margin-bottom: 15px; font-size: 28px;">%s</h1>`, html.EscapeString(string(e.Type)))

	if len(e.Photo) > 0 {
		fmt.Fprintf(&b, `<img src="data:%s;base64,%s" style="max-width: 600px; max-height: 500px; margin: 15px 0; border-radius: 8px;"/><br/>`,
			photoMIME(e.Photo), base64.StdEncoding.EncodeToString(e.Photo))
	}

	b.WriteString(`<table style="border-collapse: collapse; width: 100%; margin-top: 15px;">`)
	if !e.CreatedAt.IsZero() {
		writeRow(&b, "createdAt", e.CreatedAt.Format(TimeLayout))
	}
	keys := make([]string, 0, len(e.Attributes))
	for k := range e.Attributes {
		if !models.IsReservedKey(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeRow(&b, k, e.Attributes[k])
	}
	b.WriteString(`</table>`)

	fmt.Fprintf(&b, `<p style="margin-top: 20px; color: #7f8c8d; font-size: 16px;"><strong>Coordinates:</strong><br/>Lat: %.6f<br/>Lon: %.6f</p></div>`, e.Lat, e.Lon)
	return b.String()
}

func connectionDescription(c models.Connection) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial; font-size: 20px;">`)
	b.WriteString(`<h2 style="color: #2c3e50; font-size: 26px;">Connection</h2>`)
	b.WriteString(`<table style="border-collapse: collapse; width: 100%;">`)
	writeRow(&b, "Type", string(c.ConstructionType))
	writeRow(&b, "Infrastructure", string(c.InfrastructureStatus))
	writeRow(&b, "Distance", fmt.Sprintf("%.2f m", c.DistanceMeters))
	b.WriteString(`</table></div>`)
	return b.String()
}

func writeRow(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, `<tr %s><td %s>%s:</td><td %s>%s</td></tr>`,
		rowStyle, keyStyle, html.EscapeString(xmlText(key)), valueStyle, html.EscapeString(xmlText(value)))
}

// xmlText удаляет из строки символы, недопустимые в XML 1.0.
// Атрибуты, загруженные из CSV, не проходят ValidateAttributes.
func xmlText(s string) string {
	if models.IsXMLText(s) {
		return s
	}
	return strings.Map(func(r rune) rune {
		if models.IsXMLChar(r) {
			return r
		}
		return -1
	}, strings.ToValidUTF8(s, ""))
}

func photoMIME(data []byte) string {
	mime := http.DetectContentType(data)
	if strings.HasPrefix(mime, "image/") {
		return mime
	}
	return "image/jpeg"
}

// coordinate форматирует точку как "lon,lat" по правилам KML.
func coordinate(e models.Element) string {
	return strconv.FormatFloat(e.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(e.Lat, 'f', -1, 64)
}
