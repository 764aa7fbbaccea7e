package service

import "site-survey/internal/survey/models"

// ============================================================
// Read Model
// ============================================================

// State хранит неизменяемый снимок съемки для отрисовки интерфейса.
type State struct {
	Revision       uint64                        `json:"revision"`
	Project        string                        `json:"project"`
	Task           string                        `json:"task"`
	AutoConnect    bool                          `json:"auto_connect"`
	MapLayer       models.MapLayer               `json:"map_layer"`
	MapCenter      Point                         `json:"map_center"`
	Pending        *Point                        `json:"pending,omitempty"`
	PendingFromGPS bool                          `json:"pending_from_gps"`
	UserLocation   *UserLocation                 `json:"user_location,omitempty"`
	NextNames      map[models.ElementType]string `json:"next_names,omitempty"`
	CountsByType   map[models.ElementType]int    `json:"counts_by_type"`
	Elements       []models.Element              `json:"elements"`
	Connections    []models.Connection           `json:"connections"`
	TotalDistance  float64                       `json:"total_distance"`
}

func (s *Survey) Snapshot() State {
	st := State{
		Revision:       s.revision,
		Project:        s.project,
		Task:           s.Task(),
		AutoConnect:    s.AutoConnectEnabled(),
		MapLayer:       s.layer,
		MapCenter:      s.MapCenter(),
		PendingFromGPS: s.PendingFromGPS(),
		CountsByType:   make(map[models.ElementType]int, len(models.ElementTypes)),
		Elements:       s.Elements(),
		Connections:    s.Connections(),
		TotalDistance:  s.TotalDistance(),
	}
	if st.Connections == nil {
		st.Connections = []models.Connection{}
	}
	if s.pending != nil {
		p := *s.pending
		st.Pending = &p
	}
	if s.user != nil {
		u := *s.user
		st.UserLocation = &u
	}
	if s.project != "" {
		st.NextNames = make(map[models.ElementType]string, len(models.ElementTypes))
		for _, t := range models.ElementTypes {
			if name, err := s.seq.Peek(t); err == nil {
				st.NextNames[t] = name
			}
		}
	}
	for _, t := range models.ElementTypes {
		st.CountsByType[t] = 0
	}
	for _, e := range s.elements {
		st.CountsByType[e.Type]++
	}
	return st
}
