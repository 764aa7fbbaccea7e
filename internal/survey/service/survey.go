package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"site-survey/internal/survey/advisor"
	"site-survey/internal/survey/geometry"
	"site-survey/internal/survey/models"
	"site-survey/internal/survey/naming"
)

// ============================================================
// Survey Model
// ============================================================

// Клики ближе этого порога к ожидающей точке
// считаются повтором (~1.1 м).
const duplicateClickDegrees = 0.00001

const defaultAccuracyMeters = 50.0

type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type UserLocation struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Accuracy float64 `json:"accuracy"`
}

type Options struct {
	DefaultCenter Point
	AutoConnect   bool
	MapLayer      models.MapLayer
	Now           func() time.Time
}

func DefaultOptions() Options {
	return Options{
		DefaultCenter: Point{Lat: 31.6904, Lon: -106.4245},
		AutoConnect:   true,
		MapLayer:      models.LayerHybrid,
	}
}

// Survey владеет элементами и связями одной сессии съемки.
// Не потокобезопасен: доступ сериализует Session.
type Survey struct {
	project     string
	task        string
	autoConnect bool
	layer       models.MapLayer
	center      Point
	pending     *Point
	user        *UserLocation

	seq         *naming.Sequencer
	elements    []models.Element
	connections []models.Connection

	revision uint64
	now      func() time.Time
}

func NewSurvey(opts Options) *Survey {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	layer := opts.MapLayer
	if !layer.Valid() {
		layer = models.LayerHybrid
	}
	return &Survey{
		autoConnect: opts.AutoConnect,
		layer:       layer,
		center:      opts.DefaultCenter,
		seq:         naming.NewSequencer(""),
		now:         now,
	}
}

// ============================================================
// Project & Settings
// ============================================================

// SetProject задает имя проекта и задачи. Счетчики имен привязаны к проекту.
func (s *Survey) SetProject(project, task string) {
	s.project = strings.TrimSpace(project)
	s.task = strings.TrimSpace(task)
	s.seq.SetProject(s.project)
	s.touch()
}

func (s *Survey) Project() string { return s.project }

func (s *Survey) Task() string { return s.task }

func (s *Survey) SetAutoConnect(on bool) {
	s.autoConnect = on
	s.touch()
}

func (s *Survey) AutoConnectEnabled() bool { return s.autoConnect }

func (s *Survey) SetMapLayer(layer models.MapLayer) error {
	if !layer.Valid() {
		return fmt.Errorf("%w: unknown map layer %q", models.ErrValidation, layer)
	}
	s.layer = layer
	s.touch()
	return nil
}

// Revision увеличивается после каждой успешной мутации.
func (s *Survey) Revision() uint64 { return s.revision }

// ============================================================
// Locations
// ============================================================

// ClickLocation принимает клик по карте. Возвращает false, если клик
// повторяет текущую ожидающую точку.
func (s *Survey) ClickLocation(lat, lon float64) (bool, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return false, err
	}
	if s.pending != nil && near(*s.pending, lat, lon, true) {
		return false, nil
	}
	s.pending = &Point{Lat: lat, Lon: lon}
	s.touch()
	return true, nil
}

func (s *Survey) PendingLocation() (Point, bool) {
	if s.pending == nil {
		return Point{}, false
	}
	return *s.pending, true
}

func (s *Survey) ClearPendingLocation() {
	s.pending = nil
	s.touch()
}

// SetUserLocation сохраняет GPS-позицию пользователя и делает ее ожидающей точкой.
func (s *Survey) SetUserLocation(lat, lon, accuracy float64) error {
	if err := validateCoordinates(lat, lon); err != nil {
		return err
	}
	if accuracy <= 0 || math.IsNaN(accuracy) || math.IsInf(accuracy, 0) {
		accuracy = defaultAccuracyMeters
	}
	s.user = &UserLocation{Lat: lat, Lon: lon, Accuracy: accuracy}
	s.pending = &Point{Lat: lat, Lon: lon}
	s.touch()
	return nil
}

func (s *Survey) ClearUserLocation() {
	s.user = nil
	s.touch()
}

// PendingFromGPS сообщает, совпадает ли ожидающая точка с позицией пользователя.
func (s *Survey) PendingFromGPS() bool {
	if s.pending == nil || s.user == nil {
		return false
	}
	return near(Point{Lat: s.user.Lat, Lon: s.user.Lon}, s.pending.Lat, s.pending.Lon, false)
}

// MapCenter: последний элемент, затем ожидающая точка, затем GPS, затем значение по умолчанию.
func (s *Survey) MapCenter() Point {
	switch {
	case len(s.elements) > 0:
		last := s.elements[len(s.elements)-1]
		return Point{Lat: last.Lat, Lon: last.Lon}
	case s.pending != nil:
		return *s.pending
	case s.user != nil:
		return Point{Lat: s.user.Lat, Lon: s.user.Lon}
	}
	return s.center
}

// ============================================================
// Elements
// ============================================================

// AddElement создает элемент с системным именем. При включенном автосоединении
// возвращает также связь с предыдущим элементом.
func (s *Survey) AddElement(t models.ElementType, lat, lon float64, attrs map[string]string, photo []byte) (models.Element, *models.Connection, error) {
	if !t.Valid() {
		return models.Element{}, nil, fmt.Errorf("%w: unknown element type %q", models.ErrValidation, t)
	}
	if s.project == "" {
		return models.Element{}, nil, fmt.Errorf("%w: project name is required", models.ErrValidation)
	}
	if err := validateCoordinates(lat, lon); err != nil {
		return models.Element{}, nil, err
	}
	if err := models.ValidateAttributes(attrs); err != nil {
		return models.Element{}, nil, err
	}

	id, err := s.seq.Peek(t)
	if err != nil {
		return models.Element{}, nil, err
	}
	if s.indexOf(id) >= 0 {
		return models.Element{}, nil, fmt.Errorf("%w: element %s already exists", models.ErrConflict, id)
	}
	if _, err := s.seq.Next(t); err != nil {
		return models.Element{}, nil, err
	}

	elem := models.Element{
		ID:         id,
		Type:       t,
		Lat:        lat,
		Lon:        lon,
		CreatedAt:  s.now(),
		Attributes: make(map[string]string, len(attrs)),
	}
	for k, v := range attrs {
		if v != "" {
			elem.Attributes[k] = v
		}
	}
	if len(photo) > 0 {
		elem.Photo = append([]byte(nil), photo...)
	}

	s.elements = append(s.elements, elem)
	s.pending = nil

	var conn *models.Connection
	if s.autoConnect && len(s.elements) > 1 {
		c := s.link(s.elements[len(s.elements)-2], s.elements[len(s.elements)-1])
		s.connections = append(s.connections, c)
		conn = &c
	}

	s.touch()
	return elem.Clone(), conn, nil
}

func (s *Survey) Element(id string) (models.Element, error) {
	i := s.indexOf(id)
	if i < 0 {
		return models.Element{}, notFound(id)
	}
	return s.elements[i].Clone(), nil
}

// Elements возвращает копии элементов в порядке добавления.
func (s *Survey) Elements() []models.Element {
	out := make([]models.Element, len(s.elements))
	for i, e := range s.elements {
		out[i] = e.Clone()
	}
	return out
}

// UpdateElementAttributes сливает patch с атрибутами; пустое значение удаляет ключ.
func (s *Survey) UpdateElementAttributes(id string, patch map[string]string) error {
	if err := models.ValidateAttributes(patch); err != nil {
		return err
	}
	i := s.indexOf(id)
	if i < 0 {
		return notFound(id)
	}
	mergeAttributes(&s.elements[i], patch)
	s.touch()
	return nil
}

// UpdateElementLocation перемещает элемент и пересчитывает длины его связей.
func (s *Survey) UpdateElementLocation(id string, lat, lon float64) error {
	if err := validateCoordinates(lat, lon); err != nil {
		return err
	}
	i := s.indexOf(id)
	if i < 0 {
		return notFound(id)
	}
	s.elements[i].Lat = lat
	s.elements[i].Lon = lon
	s.recompute(id)
	s.touch()
	return nil
}

// ElementUpdate описывает строку табличного редактирования.
type ElementUpdate struct {
	ID         string            `json:"id"`
	Lat        *float64          `json:"lat,omitempty"`
	Lon        *float64          `json:"lon,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// BulkUpdateElements применяет все строки или ни одной.
func (s *Survey) BulkUpdateElements(rows []ElementUpdate) error {
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if _, dup := seen[row.ID]; dup {
			return fmt.Errorf("%w: element %s appears more than once", models.ErrConflict, row.ID)
		}
		seen[row.ID] = struct{}{}

		i := s.indexOf(row.ID)
		if i < 0 {
			return notFound(row.ID)
		}
		if err := models.ValidateAttributes(row.Attributes); err != nil {
			return fmt.Errorf("element %s: %w", row.ID, err)
		}
		lat, lon := s.elements[i].Lat, s.elements[i].Lon
		if row.Lat != nil {
			lat = *row.Lat
		}
		if row.Lon != nil {
			lon = *row.Lon
		}
		if err := validateCoordinates(lat, lon); err != nil {
			return fmt.Errorf("element %s: %w", row.ID, err)
		}
	}

	for _, row := range rows {
		i := s.indexOf(row.ID)
		mergeAttributes(&s.elements[i], row.Attributes)
		if row.Lat != nil || row.Lon != nil {
			if row.Lat != nil {
				s.elements[i].Lat = *row.Lat
			}
			if row.Lon != nil {
				s.elements[i].Lon = *row.Lon
			}
			s.recompute(row.ID)
		}
	}
	s.touch()
	return nil
}

// DeleteElement удаляет элемент вместе со всеми его связями.
func (s *Survey) DeleteElement(id string) error {
	i := s.indexOf(id)
	if i < 0 {
		return notFound(id)
	}
	s.elements = append(s.elements[:i:i], s.elements[i+1:]...)

	kept := s.connections[:0:0]
	for _, c := range s.connections {
		if !c.Touches(id) {
			kept = append(kept, c)
		}
	}
	s.connections = kept
	s.touch()
	return nil
}

// ============================================================
// Connections
// ============================================================

// AutoConnect соединяет два элемента с рекомендуемым способом строительства.
func (s *Survey) AutoConnect(prevID, currID string) (models.Connection, error) {
	prev, curr, err := s.pair(prevID, currID)
	if err != nil {
		return models.Connection{}, err
	}
	c := s.link(prev, curr)
	s.connections = append(s.connections, c)
	s.touch()
	return c, nil
}

// ReconnectAll пересобирает цепочку по порядку добавления элементов.
func (s *Survey) ReconnectAll() []models.Connection {
	s.connections = nil
	for i := 0; i+1 < len(s.elements); i++ {
		s.connections = append(s.connections, s.link(s.elements[i], s.elements[i+1]))
	}
	s.touch()
	return s.Connections()
}

func (s *Survey) AddManualConnection(a, b string, ct models.ConstructionType, st models.InfrastructureStatus) (models.Connection, error) {
	if !ct.Valid() {
		return models.Connection{}, fmt.Errorf("%w: unknown construction type %q", models.ErrValidation, ct)
	}
	if !st.Valid() {
		return models.Connection{}, fmt.Errorf("%w: unknown infrastructure status %q", models.ErrValidation, st)
	}
	ea, eb, err := s.pair(a, b)
	if err != nil {
		return models.Connection{}, err
	}
	c := models.Connection{
		ElementA:             ea.ID,
		ElementB:             eb.ID,
		ConstructionType:     ct,
		InfrastructureStatus: st,
		DistanceMeters:       geometry.Distance(ea.Lat, ea.Lon, eb.Lat, eb.Lon),
	}
	s.connections = append(s.connections, c)
	s.touch()
	return c, nil
}

// Suggest возвращает рекомендуемый способ строительства для двух существующих элементов.
func (s *Survey) Suggest(a, b string) (models.ConstructionType, error) {
	ia, ib := s.indexOf(a), s.indexOf(b)
	if ia < 0 {
		return "", notFound(a)
	}
	if ib < 0 {
		return "", notFound(b)
	}
	return advisor.Suggest(s.elements[ia].Type, s.elements[ib].Type), nil
}

func (s *Survey) Connections() []models.Connection {
	return append([]models.Connection(nil), s.connections...)
}

type ConnectionPatch struct {
	ConstructionType     *models.ConstructionType     `json:"construction_type,omitempty"`
	InfrastructureStatus *models.InfrastructureStatus `json:"infrastructure_status,omitempty"`
}

func (s *Survey) UpdateConnection(a, b string, patch ConnectionPatch) (models.Connection, error) {
	if patch.ConstructionType != nil && !patch.ConstructionType.Valid() {
		return models.Connection{}, fmt.Errorf("%w: unknown construction type %q", models.ErrValidation, *patch.ConstructionType)
	}
	if patch.InfrastructureStatus != nil && !patch.InfrastructureStatus.Valid() {
		return models.Connection{}, fmt.Errorf("%w: unknown infrastructure status %q", models.ErrValidation, *patch.InfrastructureStatus)
	}
	i := s.connectionIndex(a, b)
	if i < 0 {
		return models.Connection{}, fmt.Errorf("%w: connection %s - %s", models.ErrNotFound, a, b)
	}
	if patch.ConstructionType != nil {
		s.connections[i].ConstructionType = *patch.ConstructionType
	}
	if patch.InfrastructureStatus != nil {
		s.connections[i].InfrastructureStatus = *patch.InfrastructureStatus
	}
	s.touch()
	return s.connections[i], nil
}

// ConnectionRow описывает строку табличной замены связей. Дистанция не принимается,
// а вычисляется по координатам.
type ConnectionRow struct {
	ElementA             string                      `json:"element_a"`
	ElementB             string                      `json:"element_b"`
	ConstructionType     models.ConstructionType     `json:"construction_type"`
	InfrastructureStatus models.InfrastructureStatus `json:"infrastructure_status"`
}

// ReplaceConnections заменяет весь набор связей. Любая недопустимая строка
// отклоняет всю операцию.
func (s *Survey) ReplaceConnections(rows []ConnectionRow) ([]models.Connection, error) {
	next := make([]models.Connection, 0, len(rows))
	for n, row := range rows {
		ea, eb, err := s.resolvePair(row.ElementA, row.ElementB)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+1, err)
		}
		for _, c := range next {
			if c.Joins(ea.ID, eb.ID) {
				return nil, fmt.Errorf("row %d: %w: duplicate connection %s - %s", n+1, models.ErrConflict, ea.ID, eb.ID)
			}
		}

		ct := row.ConstructionType
		if ct == "" {
			ct = advisor.Suggest(ea.Type, eb.Type)
		}
		if !ct.Valid() {
			return nil, fmt.Errorf("row %d: %w: unknown construction type %q", n+1, models.ErrValidation, ct)
		}
		st := row.InfrastructureStatus
		if st == "" {
			st = models.New
		}
		if !st.Valid() {
			return nil, fmt.Errorf("row %d: %w: unknown infrastructure status %q", n+1, models.ErrValidation, st)
		}

		next = append(next, models.Connection{
			ElementA:             ea.ID,
			ElementB:             eb.ID,
			ConstructionType:     ct,
			InfrastructureStatus: st,
			DistanceMeters:       geometry.Distance(ea.Lat, ea.Lon, eb.Lat, eb.Lon),
		})
	}

	s.connections = next
	s.touch()
	return s.Connections(), nil
}

func (s *Survey) DeleteConnection(a, b string) error {
	i := s.connectionIndex(a, b)
	if i < 0 {
		return fmt.Errorf("%w: connection %s - %s", models.ErrNotFound, a, b)
	}
	s.connections = append(s.connections[:i:i], s.connections[i+1:]...)
	s.touch()
	return nil
}

func (s *Survey) ClearConnections() {
	s.connections = nil
	s.touch()
}

// TotalDistance возвращает сумму длин всех связей в метрах.
func (s *Survey) TotalDistance() float64 {
	total := 0.0
	for _, c := range s.connections {
		total += c.DistanceMeters
	}
	return total
}

// ============================================================
// Internals
// ============================================================

func (s *Survey) touch() { s.revision++ }

func (s *Survey) indexOf(id string) int {
	for i := range s.elements {
		if s.elements[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Survey) connectionIndex(a, b string) int {
	for i := range s.connections {
		if s.connections[i].Joins(a, b) {
			return i
		}
	}
	return -1
}

// resolvePair проверяет петлю и наличие обоих концов.
func (s *Survey) resolvePair(a, b string) (models.Element, models.Element, error) {
	if a == b {
		return models.Element{}, models.Element{}, fmt.Errorf("%w: connection from %s to itself", models.ErrValidation, a)
	}
	ia, ib := s.indexOf(a), s.indexOf(b)
	if ia < 0 {
		return models.Element{}, models.Element{}, notFound(a)
	}
	if ib < 0 {
		return models.Element{}, models.Element{}, notFound(b)
	}
	return s.elements[ia], s.elements[ib], nil
}

// pair дополнительно отклоняет уже существующую пару.
func (s *Survey) pair(a, b string) (models.Element, models.Element, error) {
	ea, eb, err := s.resolvePair(a, b)
	if err != nil {
		return ea, eb, err
	}
	if s.connectionIndex(a, b) >= 0 {
		return ea, eb, fmt.Errorf("%w: connection %s - %s already exists", models.ErrConflict, a, b)
	}
	return ea, eb, nil
}

func (s *Survey) link(prev, curr models.Element) models.Connection {
	return models.Connection{
		ElementA:             prev.ID,
		ElementB:             curr.ID,
		ConstructionType:     advisor.Suggest(prev.Type, curr.Type),
		InfrastructureStatus: models.New,
		DistanceMeters:       geometry.Distance(prev.Lat, prev.Lon, curr.Lat, curr.Lon),
	}
}

func (s *Survey) recompute(id string) {
	for i := range s.connections {
		c := &s.connections[i]
		if !c.Touches(id) {
			continue
		}
		a, b := s.elements[s.indexOf(c.ElementA)], s.elements[s.indexOf(c.ElementB)]
		c.DistanceMeters = geometry.Distance(a.Lat, a.Lon, b.Lat, b.Lon)
	}
}

func mergeAttributes(e *models.Element, patch map[string]string) {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string, len(patch))
	}
	for k, v := range patch {
		if v == "" {
			delete(e.Attributes, k)
			continue
		}
		e.Attributes[k] = v
	}
}

func notFound(id string) error {
	return fmt.Errorf("%w: element %s", models.ErrNotFound, id)
}

func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return fmt.Errorf("%w: coordinates must be finite", models.ErrValidation)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: coordinates out of range (%f, %f)", models.ErrValidation, lat, lon)
	}
	return nil
}

// near сравнивает точки с порогом duplicateClickDegrees; inclusive включает границу.
func near(p Point, lat, lon float64, inclusive bool) bool {
	dLat, dLon := math.Abs(p.Lat-lat), math.Abs(p.Lon-lon)
	if inclusive {
		return dLat <= duplicateClickDegrees && dLon <= duplicateClickDegrees
	}
	return dLat < duplicateClickDegrees && dLon < duplicateClickDegrees
}
