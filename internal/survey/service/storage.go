package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ============================================================
// File Storage
// ============================================================

// FileStorage раскладывает выгрузки по каталогам проектов.
type FileStorage struct {
	root string
}

func NewFileStorage(root string) *FileStorage {
	return &FileStorage{root: root}
}

func (s *FileStorage) ProjectDir(project string) string {
	return filepath.Join(s.root, safeName(project))
}

func (s *FileStorage) Path(project, filename string) string {
	return filepath.Join(s.ProjectDir(project), filepath.Base(filename))
}

func (s *FileStorage) EnsureDir(project string) error {
	path := s.ProjectDir(project)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir project dir: %w", err)
	}
	return nil
}

// Save пишет документ выгрузки и возвращает путь к файлу.
func (s *FileStorage) Save(project string, doc Document) (string, error) {
	if err := s.EnsureDir(project); err != nil {
		return "", err
	}
	target := s.Path(project, doc.Filename)
	if err := os.WriteFile(target, []byte(doc.Body), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", doc.Filename, err)
	}
	return target, nil
}

func safeName(project string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(project))
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}
