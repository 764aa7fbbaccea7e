package models

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// ============================================================
// Element Types
// ============================================================

type ElementType string

const (
	Pole          ElementType = "Pole"
	Handhole      ElementType = "Handhole"
	SpliceClosure ElementType = "SpliceClosure"
	Building      ElementType = "Building"
)

// ElementTypes перечисляет типы в порядке отображения в форме.
var ElementTypes = []ElementType{Pole, Handhole, SpliceClosure, Building}

func (t ElementType) Valid() bool {
	switch t {
	case Pole, Handhole, SpliceClosure, Building:
		return true
	}
	return false
}

// ParseElementType принимает каноническое имя типа.
func ParseElementType(s string) (ElementType, error) {
	t := ElementType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown element type %q", ErrValidation, s)
	}
	return t, nil
}

// ============================================================
// Connection Enums
// ============================================================

type ConstructionType string

const (
	Duct        ConstructionType = "Duct"
	AerialRoute ConstructionType = "AerialRoute"
	ADSS        ConstructionType = "ADSS"
)

var ConstructionTypes = []ConstructionType{AerialRoute, ADSS, Duct}

func (c ConstructionType) Valid() bool {
	switch c {
	case Duct, AerialRoute, ADSS:
		return true
	}
	return false
}

func ParseConstructionType(s string) (ConstructionType, error) {
	c := ConstructionType(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown construction type %q", ErrValidation, s)
	}
	return c, nil
}

type InfrastructureStatus string

const (
	New      InfrastructureStatus = "New"
	Existing InfrastructureStatus = "Existing"
)

func (s InfrastructureStatus) Valid() bool {
	return s == New || s == Existing
}

func ParseInfrastructureStatus(s string) (InfrastructureStatus, error) {
	st := InfrastructureStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown infrastructure status %q", ErrValidation, s)
	}
	return st, nil
}

// ============================================================
// Element & Connection
// ============================================================

type Element struct {
	ID         string            `json:"id"`
	Type       ElementType       `json:"type"`
	Lat        float64           `json:"lat"`
	Lon        float64           `json:"lon"`
	CreatedAt  time.Time         `json:"created_at"`
	Attributes map[string]string `json:"attributes"`
	Photo      []byte            `json:"photo,omitempty"`
}

// Clone возвращает копию без общих ссылок на map и срез фото.
func (e Element) Clone() Element {
	out := e
	out.Attributes = make(map[string]string, len(e.Attributes))
	for k, v := range e.Attributes {
		out.Attributes[k] = v
	}
	if e.Photo != nil {
		out.Photo = append([]byte(nil), e.Photo...)
	}
	return out
}

type Connection struct {
	ElementA             string               `json:"element_a"`
	ElementB             string               `json:"element_b"`
	ConstructionType     ConstructionType     `json:"construction_type"`
	InfrastructureStatus InfrastructureStatus `json:"infrastructure_status"`
	DistanceMeters       float64              `json:"distance_meters"`
}

// Joins сообщает, соединяет ли связь пару a-b в любом порядке.
func (c Connection) Joins(a, b string) bool {
	return (c.ElementA == a && c.ElementB == b) || (c.ElementA == b && c.ElementB == a)
}

// Touches сообщает, ссылается ли связь на элемент.
func (c Connection) Touches(id string) bool {
	return c.ElementA == id || c.ElementB == id
}

// ============================================================
// Reserved attribute keys
// ============================================================

var reservedKeys = map[string]struct{}{
	"id":        {},
	"type":      {},
	"lat":       {},
	"lon":       {},
	"photo":     {},
	"createdAt": {},
}

func IsReservedKey(key string) bool {
	_, ok := reservedKeys[key]
	return ok
}

// ValidateAttributes отклоняет пустые и зарезервированные ключи,
// а также ключи и значения, которые нельзя записать в XML.
func ValidateAttributes(attrs map[string]string) error {
	for k, v := range attrs {
		if k == "" {
			return fmt.Errorf("%w: empty attribute key", ErrValidation)
		}
		if IsReservedKey(k) {
			return fmt.Errorf("%w: attribute key %q is reserved", ErrValidation, k)
		}
		if !IsXMLText(k) {
			return fmt.Errorf("%w: attribute key %q contains characters not allowed in xml", ErrValidation, k)
		}
		if !IsXMLText(v) {
			return fmt.Errorf("%w: attribute %q contains characters not allowed in xml", ErrValidation, k)
		}
	}
	return nil
}

// IsXMLText сообщает, что строка является корректным UTF-8 и состоит
// только из символов продукции Char спецификации XML 1.0.
func IsXMLText(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if !IsXMLChar(r) {
			return false
		}
	}
	return true
}

func IsXMLChar(r rune) bool {
	switch {
	case r == 0x09 || r == 0x0A || r == 0x0D:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}
