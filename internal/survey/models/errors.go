package models

import "errors"

// Ошибки предметной области. Все они восстановимы: операция отклоняется,
// состояние съемки не меняется.
var (
	// ErrValidation: не выполнено обязательное условие (пустой проект, петля и т.п.).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound: идентификатор не найден.
	ErrNotFound = errors.New("not found")

	// ErrConflict: коллизия идентификаторов при записи.
	ErrConflict = errors.New("conflict")

	// ErrConfiguration: операция вызвана в недопустимом состоянии.
	ErrConfiguration = errors.New("invalid configuration")
)
