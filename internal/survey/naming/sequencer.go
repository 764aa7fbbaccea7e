package naming

import (
	"fmt"

	"site-survey/internal/survey/models"
)

// ============================================================
// Naming Sequencer
// ============================================================

// Sequencer выдает имена элементов вида {project}_{prefix}{n:03d}.
// Счетчики хранятся отдельно для каждого проекта и никогда не уменьшаются,
// поэтому удаление элемента не освобождает его номер.
type Sequencer struct {
	project  string
	counters map[string]map[string]int // project -> prefix -> last issued
}

func NewSequencer(project string) *Sequencer {
	return &Sequencer{
		project:  project,
		counters: make(map[string]map[string]int),
	}
}

// SetProject переключает sequencer на счетчики другого проекта.
// Возврат к прежнему имени продолжает его нумерацию.
func (s *Sequencer) SetProject(project string) {
	s.project = project
}

func (s *Sequencer) Project() string {
	return s.project
}

// Next выдает следующий идентификатор для типа.
func (s *Sequencer) Next(t models.ElementType) (string, error) {
	prefix, n, err := s.peek(t)
	if err != nil {
		return "", err
	}

	byPrefix, ok := s.counters[s.project]
	if !ok {
		byPrefix = make(map[string]int)
		s.counters[s.project] = byPrefix
	}
	byPrefix[prefix] = n

	return format(s.project, prefix, n), nil
}

// Peek возвращает идентификатор, который выдаст Next, не расходуя номер.
func (s *Sequencer) Peek(t models.ElementType) (string, error) {
	prefix, n, err := s.peek(t)
	if err != nil {
		return "", err
	}
	return format(s.project, prefix, n), nil
}

func (s *Sequencer) peek(t models.ElementType) (string, int, error) {
	if s.project == "" {
		return "", 0, fmt.Errorf("%w: project name is required for naming", models.ErrConfiguration)
	}
	prefix, ok := models.Prefix(t)
	if !ok {
		return "", 0, fmt.Errorf("%w: unknown element type %q", models.ErrValidation, t)
	}
	return prefix, s.counters[s.project][prefix] + 1, nil
}

func format(project, prefix string, n int) string {
	return fmt.Sprintf("%s_%s%03d", project, prefix, n)
}
