package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound           = errors.New("не найдено")
	ErrForbidden          = errors.New("доступ запрещён")
	ErrUnauthorized       = errors.New("требуется авторизация")
	ErrInvalidCredentials = errors.New("неверный email или пароль")
	ErrEmailTaken         = errors.New("email уже зарегистрирован")
	ErrCacheMiss          = errors.New("cache: miss")
)

// ValidationError собирает ошибки по полям запроса.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError создаёт ошибку с одним полем.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {msg}}}
}

// Add добавляет сообщение к полю.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, strings.Join(e.Fields[k], "; "))
	}
	return strings.Join(parts, "; ")
}
