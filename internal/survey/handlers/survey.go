package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"site-survey/internal/survey/models"
	"site-survey/internal/survey/repository"
	"site-survey/internal/survey/service"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Survey Handler
// ============================================================

// Journal фиксирует переданные выгрузки.
type Journal interface {
	Record(ctx context.Context, h repository.Handoff) (repository.Handoff, error)
	ListBySession(ctx context.Context, sessionID string) ([]repository.Handoff, error)
}

type SurveyHandler struct {
	sessions     *service.SessionManager
	journal      Journal
	storage      *service.FileStorage
	sessionLimit fiber.Handler
}

// NewSurveyHandler: journal и storage могут быть nil.
func NewSurveyHandler(sessions *service.SessionManager, journal Journal, storage *service.FileStorage) *SurveyHandler {
	return &SurveyHandler{
		sessions: sessions,
		journal:  journal,
		storage:  storage,
	}
}

// LimitSessions ставит middleware перед созданием сессий.
func (h *SurveyHandler) LimitSessions(mw fiber.Handler) {
	h.sessionLimit = mw
}

// Register вешает маршруты API на router.
func (h *SurveyHandler) Register(r fiber.Router) {
	r.Get("/schema", h.GetSchema)

	if h.sessionLimit != nil {
		r.Post("/sessions", h.sessionLimit, h.CreateSession)
	} else {
		r.Post("/sessions", h.CreateSession)
	}
	r.Get("/sessions/:sid", h.GetState)
	r.Delete("/sessions/:sid", h.DeleteSession)
	r.Put("/sessions/:sid/project", h.SetProject)
	r.Put("/sessions/:sid/settings", h.SetSettings)

	r.Post("/sessions/:sid/location/click", h.ClickLocation)
	r.Delete("/sessions/:sid/location/pending", h.ClearPending)
	r.Put("/sessions/:sid/location/gps", h.SetGPS)
	r.Delete("/sessions/:sid/location/gps", h.ClearGPS)

	r.Post("/sessions/:sid/elements", h.AddElement)
	r.Put("/sessions/:sid/elements", h.BulkUpdateElements)
	r.Patch("/sessions/:sid/elements/:id", h.UpdateElement)
	r.Delete("/sessions/:sid/elements/:id", h.DeleteElement)

	r.Post("/sessions/:sid/connections", h.AddConnection)
	r.Put("/sessions/:sid/connections", h.ReplaceConnections)
	r.Delete("/sessions/:sid/connections", h.ClearConnections)
	r.Post("/sessions/:sid/connections/reconnect", h.ReconnectAll)
	r.Patch("/sessions/:sid/connections/:a/:b", h.UpdateConnection)
	r.Delete("/sessions/:sid/connections/:a/:b", h.DeleteConnection)

	r.Get("/sessions/:sid/suggest", h.Suggest)
	r.Get("/sessions/:sid/export/:file", h.Export)
	r.Get("/sessions/:sid/handoffs", h.ListHandoffs)
}

type mutationResponse struct {
	Revision    uint64                   `json:"revision"`
	Element     *models.Element          `json:"element,omitempty"`
	Connection  *models.Connection       `json:"connection,omitempty"`
	Connections []models.Connection      `json:"connections,omitempty"`
	Accepted    *bool                    `json:"accepted,omitempty"`
	Pending     *service.Point           `json:"pending,omitempty"`
	Suggestion  *models.ConstructionType `json:"suggestion,omitempty"`
}

// ============================================================
// Sessions & Settings
// ============================================================

// GetSchema отдает поля формы по типам элементов.
func (h *SurveyHandler) GetSchema(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"element_types":      models.ElementTypes,
		"construction_types": models.ConstructionTypes,
		"statuses":           []models.InfrastructureStatus{models.New, models.Existing},
		"schemas":            models.Schemas(),
	})
}

type projectRequest struct {
	Project string `json:"project"`
	Task    string `json:"task"`
}

// CreateSession выдает токен новой изолированной съемки.
func (h *SurveyHandler) CreateSession(c fiber.Ctx) error {
	var req projectRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
		}
	}

	sess := h.sessions.Issue()
	var state service.State
	_ = sess.Do(func(s *service.Survey) error {
		if req.Project != "" || req.Task != "" {
			s.SetProject(req.Project, req.Task)
		}
		state = s.Snapshot()
		return nil
	})

	log.Printf("[SURVEY] Session %s created (project %q)", sess.ID, state.Project)
	return c.Status(http.StatusCreated).JSON(fiber.Map{"token": sess.ID, "state": state})
}

// GetState отдает текущий снимок съемки.
func (h *SurveyHandler) GetState(c fiber.Ctx) error {
	return h.query(c, func(s *service.Survey) (any, error) {
		return s.Snapshot(), nil
	})
}

func (h *SurveyHandler) DeleteSession(c fiber.Ctx) error {
	if !h.sessions.Drop(c.Params("sid")) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *SurveyHandler) SetProject(c fiber.Ctx) error {
	var req projectRequest
	if err := decode(c, &req); err != nil {
		return writeError(c, err)
	}
	return h.query(c, func(s *service.Survey) (any, error) {
		s.SetProject(req.Project, req.Task)
		return s.Snapshot(), nil
	})
}

type settingsRequest struct {
	AutoConnect *bool   `json:"auto_connect"`
	MapLayer    *string `json:"map_layer"`
}

func (h *SurveyHandler) SetSettings(c fiber.Ctx) error {
	var req settingsRequest
	if err := decode(c, &req); err != nil {
		return writeError(c, err)
	}
	return h.query(c, func(s *service.Survey) (any, error) {
		if req.MapLayer != nil {
			if err := s.SetMapLayer(models.MapLayer(*req.MapLayer)); err != nil {
				return nil, err
			}
		}
		if req.AutoConnect != nil {
			s.SetAutoConnect(*req.AutoConnect)
		}
		return s.Snapshot(), nil
	})
}

// ============================================================
// Locations
// ============================================================

type locationRequest struct {
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	Accuracy float64  `json:"accuracy"`
}

func (r locationRequest) point() (float64, float64, error) {
	if r.Lat == nil || r.Lon == nil {
		return 0, 0, fmt.Errorf("%w: lat and lon required", models.ErrValidation)
	}
	return *r.Lat, *r.Lon, nil
}

// ClickLocation принимает событие клика карты.
func (h *SurveyHandler) ClickLocation(c fiber.Ctx) error {
	var req locationRequest
	if err := decode(c, &req); err != nil {
		return writeError(c, err)
	}
	return h.query(c, func(s *service.Survey) (any, error) {
		lat, lon, err := req.point()
		if err != nil {
			return nil, err
		}
		accepted, err := s.ClickLocation(lat, lon)
		if err != nil {
			return nil, err
		}
		resp := mutationResponse{Revision: s.Revision(), Accepted: &accepted}
		if p, ok := s.PendingLocation(); ok {
			resp.Pending = &p
		}
		return resp, nil
	})
}

func (h *SurveyHandler) ClearPending(c fiber.Ctx) error {
	return h.query(c, func(s *service.Survey) (any, error) {
		s.ClearPendingLocation()
		return mutationResponse{Revision: s.Revision()}, nil
	})
}

func (h *SurveyHandler) SetGPS(c fiber.Ctx) error {
	var req locationRequest
	if err := decode(c, &req); err != nil {
		return writeError(c, err)
	}
	return h.query(c, func(s *service.Survey) (any, error) {
		lat, lon, err := req.point()
		if err != nil {
			return nil, err
		}
		if err := s.SetUserLocation(lat, lon, req.Accuracy); err != nil {
			return nil, err
		}
		return s.Snapshot(), nil
	})
}

func (h *SurveyHandler) ClearGPS(c fiber.Ctx) error {
	return h.query(c, func(s *service.Survey) (any, error) {
		s.ClearUserLocation()
		return mutationResponse{Revision: s.Revision()}, nil
	})
}

// ============================================================
// Elements
// ============================================================

type elementRequest struct {
	Type       string            `json:"type"`
	Lat        *float64          `json:"lat"`
	Lon        *float64          `json:"lon"`
	Attributes map[string]string `json:"attributes"`
	Photo      []byte            `json:"photo"`
}

// AddElement создает элемент из JSON или multipart-формы с фото.
// Без координат используется ожидающая точка карты.
func (h *SurveyHandler) AddElement(c fiber.Ctx) error {
	var req elementRequest
	var err error
	if strings.HasPrefix(c.Get("Content-Type"), "multipart/form-data") {
		req, err = elementFromForm(c)
		if err != nil {
			return writeError(c, err)
		}
	} else if err := decode(c, &req); err != nil {
		return writeError(c, err)
	}

	t, err := models.ParseElementType(req.Type)
	if err != nil {
		return writeError(c, err)
	}

	return h.query(c, func(s *service.Survey) (any, error) {
		lat, lon, err := coordinates(s, req.Lat, req.Lon)
		if err != nil {
			return nil, err
		}
		elem, conn, err := s.AddElement(t, lat, lon, req.Attributes, req.Photo)
		if err != nil {
			return nil, err
		}
		if conn != nil {
			log.Printf("[SURVEY] %s saved and connected to %s (%s, %.2f m)", elem.ID, conn.ElementA, conn.ConstructionType, conn.DistanceMeters)
		} else {
			log.Printf("[SURVEY] %s saved", elem.ID)
		}
		return mutationResponse{Revision: s.Revision(), Element: &elem, Connection: conn}, nil
	})
}

func coordinates(s *service.Survey, lat, lon *float64) (float64, float64, error) {
	if lat != nil && lon != nil {
		return *lat, *lon, nil
	}
	if lat != nil || lon != nil {
		return 0, 0, fmt.Errorf("%w: both lat and lon required", models.ErrValidation)
	}
	p, ok := s.PendingLocation()
	if !ok {
		return 0, 0, fmt.Errorf("%w: no location selected", models.ErrValidation)
	}
	return p.Lat, p.Lon, nil
}

// elementFromForm читает поля type, lat, lon, attr.<key> и файл photo.
func elementFromForm(c fiber.Ctx) (elementRequest, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return elementRequest{}, fmt.Errorf("%w: invalid multipart data", models.ErrValidation)
	}

	req := elementRequest{Attributes: make(map[string]string)}
	for key, values := range form.Value {
		if len(values) == 0 {
			continue
		}
		switch {
		case key == "type":
			req.Type = values[0]
		case key == "lat" || key == "lon":
			v, err := strconv.ParseFloat(values[0], 64)
			if err != nil {
				return elementRequest{}, fmt.Errorf("%w: %s must be a number", models.ErrValidation, key)
			}
			if key == "lat" {
				req.Lat = &v
			} else {
				req.Lon = &v
			}
		case strings.HasPrefix(key, "attr."):
			req.Attributes[strings.TrimPrefix(key, "attr.")] = strings.Join(values, ", ")
		}
	}

	if files := form.File["photo"]; len(files) > 0 {
		f, err := files[0].Open()
		if err != nil {
			return elementRequest{}, fmt.Errorf("open photo: %w", err)
		}
		defer f.Close()
		if req.Photo, err = io.ReadAll(f); err != nil {
			return elementRequest{}, fmt.Errorf("read photo: %w", err)
		}
	}
	return req, nil
}

type elementPatch struct {
	Lat        *float64          `json:"lat"`
	Lon        *float64          `json:"lon"`
	Attributes map[string]string `json:"attributes"`
}

// UpdateElement правит атрибуты и/или координаты одного элемента атомарно.
func (h *SurveyHandler) UpdateElement(c fiber.Ctx) error {
	var req elementPatch
	if err := decode(c, &req); err != nil {
		return writeError(c, err)
	}
	id := param(c, "id")
	return h.query(c, func(s *service.Survey) (any, error) {
		row := service.ElementUpdate{ID: id, Lat: req.Lat, Lon: req.Lon, Attributes: req.Attributes}
		if err := s.BulkUpdateElements([]service.ElementUpdate{row}); err != nil {
			return nil, err
		}
		elem, err := s.Element(id)
		if err != nil {
			return nil, err
		}
		return mutationResponse{Revision: s.Revision(), Element: &elem}, nil
	})
}

type bulkElementsRequest struct {
	Elements []service.ElementUpdate `json:"elements"`
}

func (h *SurveyHandler) BulkUpdateElements(c fiber.Ctx) error {
	var req bulkElementsRequest
	if err := decode(c, &req); err != nil {
		return writeError(c, err)
	}
	return h.query(c, func(s *service.Survey) (any, error) {
		if err := s.BulkUpdateElements(req.Elements); err != nil {
			return nil, err
		}
		return s.Snapshot(), nil
	})
}

func (h *SurveyHandler) DeleteElement(c fiber.Ctx) error {
	id := param(c, "id")
	return h.query(c, func(s *service.Survey) (any, error) {
		if err := s.DeleteElement(id); err != nil {
			return nil, err
		}
		log.Printf("[SURVEY] %s deleted", id)
		return mutationResponse{Revision: s.Revision(), Connections: s.Connections()}, nil
	})
}

// ============================================================
// Connections
// ============================================================

type connectionRequest struct {
	ElementA             string `json:"element_a"`
	ElementB             string `json:"element_b"`
	ConstructionType     string `json:"construction_type"`
	InfrastructureStatus string `json:"infrastructure_status"`
}

// AddConnection создает ручную связь; без типа берется рекомендация.
func (h *SurveyHandler) AddConnection(c fiber.Ctx) error {
	var req connectionRequest
	if err := decode(c, &req); err != nil {
		return writeError(c, err)
	}
	return h.query(c, func(s *service.Survey) (any, error) {
		ct := models.ConstructionType(req.ConstructionType)
		if ct == "" {
			suggested, err := s.Suggest(req.ElementA, req.ElementB)
			if err != nil {
				return nil, err
			}
			ct = suggested
		}
		st := models.InfrastructureStatus(req.InfrastructureStatus)
		if st == "" {
			st = models.New
		}
		conn, err := s.AddManualConnection(req.ElementA, req.ElementB, ct, st)
		if err != nil {
			return nil, err
		}
		return mutationResponse{Revision: s.Revision(), Connection: &conn}, nil
	})
}

type replaceConnectionsRequest struct {
	Connections []service.ConnectionRow `json:"connections"`
}

func (h *SurveyHandler) ReplaceConnections(c fiber.Ctx) error {
	var req replaceConnectionsRequest
	if err := decode(c, &req); err != nil {
		return writeError(c, err)
	}
	return h.query(c, func(s *service.Survey) (any, error) {
		conns, err := s.ReplaceConnections(req.Connections)
		if err != nil {
			return nil, err
		}
		return mutationResponse{Revision: s.Revision(), Connections: conns}, nil
	})
}

func (h *SurveyHandler) ClearConnections(c fiber.Ctx) error {
	return h.query(c, func(s *service.Survey) (any, error) {
		s.ClearConnections()
		return mutationResponse{Revision: s.Revision()}, nil
	})
}

// ReconnectAll пересобирает цепочку связей по порядку элементов.
func (h *SurveyHandler) ReconnectAll(c fiber.Ctx) error {
	return h.query(c, func(s *service.Survey) (any, error) {
		conns := s.ReconnectAll()
		log.Printf("[SURVEY] Reconnected %d connections", len(conns))
		return mutationResponse{Revision: s.Revision(), Connections: conns}, nil
	})
}

type connectionPatchRequest struct {
	ConstructionType     *string `json:"construction_type"`
	InfrastructureStatus *string `json:"infrastructure_status"`
}

func (h *SurveyHandler) UpdateConnection(c fiber.Ctx) error {
	var req connectionPatchRequest
	if err := decode(c, &req); err != nil {
		return writeError(c, err)
	}
	a, b := param(c, "a"), param(c, "b")
	return h.query(c, func(s *service.Survey) (any, error) {
		var patch service.ConnectionPatch
		if req.ConstructionType != nil {
			ct := models.ConstructionType(*req.ConstructionType)
			patch.ConstructionType = &ct
		}
		if req.InfrastructureStatus != nil {
			st := models.InfrastructureStatus(*req.InfrastructureStatus)
			patch.InfrastructureStatus = &st
		}
		conn, err := s.UpdateConnection(a, b, patch)
		if err != nil {
			return nil, err
		}
		return mutationResponse{Revision: s.Revision(), Connection: &conn}, nil
	})
}

func (h *SurveyHandler) DeleteConnection(c fiber.Ctx) error {
	a, b := param(c, "a"), param(c, "b")
	return h.query(c, func(s *service.Survey) (any, error) {
		if err := s.DeleteConnection(a, b); err != nil {
			return nil, err
		}
		return mutationResponse{Revision: s.Revision()}, nil
	})
}

// Suggest отдает рекомендуемый способ строительства для пары ?a=&b=.
func (h *SurveyHandler) Suggest(c fiber.Ctx) error {
	a, b := c.Query("a"), c.Query("b")
	return h.query(c, func(s *service.Survey) (any, error) {
		ct, err := s.Suggest(a, b)
		if err != nil {
			return nil, err
		}
		return mutationResponse{Revision: s.Revision(), Suggestion: &ct}, nil
	})
}

// ============================================================
// Export
// ============================================================

var exportFiles = map[string]service.ExportKind{
	"elements.csv":    service.ExportElementsCSV,
	"connections.csv": service.ExportConnectionsCSV,
	"survey.kml":      service.ExportKML,
}

// Export отдает файл выгрузки и записывает факт передачи в журнал.
func (h *SurveyHandler) Export(c fiber.Ctx) error {
	kind, ok := exportFiles[c.Params("file")]
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "unknown export"})
	}
	sess, ok := h.sessions.Resolve(c.Params("sid"))
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}

	var doc service.Document
	var project string
	err := sess.Do(func(s *service.Survey) error {
		var err error
		doc, err = s.Export(kind)
		project = s.Project()
		return err
	})
	if err != nil {
		return writeError(c, err)
	}

	h.recordHandoff(sess.ID, project, doc)

	c.Set("Content-Type", doc.ContentType)
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.Filename))
	return c.SendString(doc.Body)
}

func (h *SurveyHandler) recordHandoff(sessionID, project string, doc service.Document) {
	if h.storage != nil {
		if path, err := h.storage.Save(project, doc); err != nil {
			log.Printf("[SURVEY] save export error: %v", err)
		} else {
			log.Printf("[SURVEY] Export saved to %s", path)
		}
	}
	if h.journal == nil {
		return
	}
	_, err := h.journal.Record(context.Background(), repository.Handoff{
		SessionID:   sessionID,
		Project:     project,
		Kind:        string(doc.Kind),
		Filename:    doc.Filename,
		Elements:    doc.Elements,
		Connections: doc.Connections,
		Bytes:       len(doc.Body),
	})
	if err != nil {
		log.Printf("[SURVEY] record handoff error: %v", err)
	}
}

// ListHandoffs отдает журнал выгрузок текущей сессии.
func (h *SurveyHandler) ListHandoffs(c fiber.Ctx) error {
	sid := c.Params("sid")
	if _, ok := h.sessions.Resolve(sid); !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}
	if h.journal == nil {
		return c.JSON([]repository.Handoff{})
	}
	list, err := h.journal.ListBySession(context.Background(), sid)
	if err != nil {
		log.Printf("[SURVEY] list handoffs error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list handoffs"})
	}
	return c.JSON(list)
}

// ============================================================
// Helpers
// ============================================================

// query выполняет fn в сессии из :sid и отдает результат как JSON.
func (h *SurveyHandler) query(c fiber.Ctx, fn func(*service.Survey) (any, error)) error {
	sess, ok := h.sessions.Resolve(c.Params("sid"))
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}

	var out any
	err := sess.Do(func(s *service.Survey) error {
		var err error
		out, err = fn(s)
		return err
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// decode разбирает JSON-тело запроса.
func decode(c fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return fmt.Errorf("%w: empty body", models.ErrValidation)
	}
	if err := json.Unmarshal(c.Body(), v); err != nil {
		return fmt.Errorf("%w: invalid json", models.ErrValidation)
	}
	return nil
}

func writeError(c fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[SURVEY] Internal error: %v", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrConfiguration):
		return http.StatusPreconditionFailed
	}
	return http.StatusInternalServerError
}

func param(c fiber.Ctx, name string) string {
	raw := c.Params(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
