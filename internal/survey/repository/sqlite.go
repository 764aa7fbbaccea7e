package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

//go:embed migrations/*.sql
var migrations embed.FS

// timeLayout фиксированной ширины, чтобы строки сортировались как время.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ============================================================
// Handoff Journal
// ============================================================

// Handoff описывает переданную выгрузку. Сама съемка не сохраняется.
type Handoff struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Project     string    `json:"project"`
	Kind        string    `json:"kind"`
	Filename    string    `json:"filename"`
	Elements    int       `json:"elements"`
	Connections int       `json:"connections"`
	Bytes       int       `json:"bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init применяет встроенные миграции по порядку имен файлов.
func (r *Repository) Init(ctx context.Context) error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := migrations.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := r.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

// Record сохраняет запись, присваивая ID и время при их отсутствии.
func (r *Repository) Record(ctx context.Context, h Handoff) (Handoff, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO handoffs (id, session_id, project, kind, filename, elements, connections, bytes, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, h.ID, h.SessionID, h.Project, h.Kind, h.Filename, h.Elements, h.Connections, h.Bytes, h.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return Handoff{}, fmt.Errorf("insert handoff: %w", err)
	}
	return h, nil
}

// ListBySession возвращает выгрузки сессии, новые последними.
func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]Handoff, error) {
	return r.list(ctx, `WHERE session_id = ?`, sessionID)
}

// ListByProject возвращает выгрузки проекта из всех сессий.
func (r *Repository) ListByProject(ctx context.Context, project string) ([]Handoff, error) {
	return r.list(ctx, `WHERE project = ?`, project)
}

func (r *Repository) list(ctx context.Context, where string, arg string) ([]Handoff, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, session_id, project, kind, filename, elements, connections, bytes, created_at
        FROM handoffs
        `+where+`
        ORDER BY created_at, id
    `, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Handoff{}
	for rows.Next() {
		var h Handoff
		var created string
		if err := rows.Scan(&h.ID, &h.SessionID, &h.Project, &h.Kind, &h.Filename, &h.Elements, &h.Connections, &h.Bytes, &created); err != nil {
			return nil, err
		}
		if h.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", created, err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// OpenSQLite открывает sqlite по указанному пути.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
