package models

// ============================================================
// Attribute Schema
// ============================================================

// Field описывает одно поле формы для типа элемента.
type Field struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Options  []string `json:"options,omitempty"`
	Multi    bool     `json:"multi,omitempty"`
	Textarea bool     `json:"textarea,omitempty"`
}

type TypeSchema struct {
	Type   ElementType `json:"type"`
	Prefix string      `json:"prefix"`
	Fields []Field     `json:"fields"`
}

var (
	owners    = []string{"CFE", "ATC", "Flo Networks", "Maxcom", "XC Networks", "Municipio", "Parque Industrial", "Privado"}
	operators = []string{"ATC", "Flo Networks", "Maxcom", "XC Networks", "Otro"}
)

var schemas = map[ElementType]TypeSchema{
	Pole: {
		Type:   Pole,
		Prefix: "P",
		Fields: []Field{
			{Key: "owner", Label: "Owner", Options: owners},
			{Key: "height_m", Label: "Height (m)", Options: []string{"6", "7", "8", "9", "10", "11", "12", "13", "14", "15"}},
			{Key: "cfe_id", Label: "CFE ID"},
			{Key: "used_by", Label: "Used by", Options: operators, Multi: true},
			{Key: "material", Label: "Material", Options: []string{"Concreto", "Madera", "Metal"}},
			{Key: "pole_kind", Label: "Kind", Options: []string{"Poste nuevo", "Poste ya utilizado por Infra", "Poste sin utilizar por nuestra Infra"}},
		},
	},
	Handhole: {
		Type:   Handhole,
		Prefix: "HH",
		Fields: []Field{
			{Key: "owner", Label: "Owner", Options: owners},
			{Key: "dimensions", Label: "Dimensions", Options: []string{"24x24x24", "24x36x24", "48x48x48", "Otro"}},
			{Key: "used_by", Label: "Used by", Options: operators, Multi: true},
			{Key: "installed_in", Label: "Installed in", Options: []string{"Banqueta", "Arroyo", "Propiedad Privada"}},
		},
	},
	SpliceClosure: {
		Type:   SpliceClosure,
		Prefix: "CE",
		Fields: []Field{
			{Key: "status", Label: "Status", Options: []string{"Nuevo", "Existente"}},
			{Key: "closure_name", Label: "Closure name"},
		},
	},
	Building: {
		Type:   Building,
		Prefix: "BLD",
		Fields: []Field{
			{Key: "address", Label: "Full address", Textarea: true},
			{Key: "building_name", Label: "Building name"},
			{Key: "floor", Label: "Customer floor"},
			{Key: "suite", Label: "Customer suite"},
			{Key: "notes", Label: "Additional data"},
		},
	},
}

// Schema возвращает схему формы для типа.
func Schema(t ElementType) (TypeSchema, bool) {
	s, ok := schemas[t]
	return s, ok
}

// Schemas возвращает схемы всех типов в порядке ElementTypes.
func Schemas() []TypeSchema {
	out := make([]TypeSchema, 0, len(ElementTypes))
	for _, t := range ElementTypes {
		out = append(out, schemas[t])
	}
	return out
}

// Prefix возвращает префикс имени для типа.
func Prefix(t ElementType) (string, bool) {
	s, ok := schemas[t]
	if !ok {
		return "", false
	}
	return s.Prefix, true
}

// ============================================================
// Map Layers
// ============================================================

type MapLayer string

const (
	LayerHybrid          MapLayer = "hybrid"
	LayerSatellite       MapLayer = "satellite"
	LayerSatelliteGoogle MapLayer = "satellite_google"
	LayerStreets         MapLayer = "streets"
	LayerTerrain         MapLayer = "terrain"
)

func (l MapLayer) Valid() bool {
	switch l {
	case LayerHybrid, LayerSatellite, LayerSatelliteGoogle, LayerStreets, LayerTerrain:
		return true
	}
	return false
}
