package stats

import (
	"errors"
	"fmt"
)

// ErrorCode типизированный код ошибки трекера статистики
type ErrorCode int

const (
	// ErrorCodeAddressing идентификатор отправителя вне диапазона абонентов
	ErrorCodeAddressing ErrorCode = iota + 300
	// ErrorCodeSessionFinalized пакет пришел после завершения сессии
	ErrorCodeSessionFinalized
	// ErrorCodeInvalidConfig некорректная конфигурация трекера
	ErrorCodeInvalidConfig
)

// String возвращает строковое представление кода ошибки
func (code ErrorCode) String() string {
	switch code {
	case ErrorCodeAddressing:
		return "Addressing"
	case ErrorCodeSessionFinalized:
		return "SessionFinalized"
	case ErrorCodeInvalidConfig:
		return "InvalidConfig"
	default:
		return fmt.Sprintf("Unknown(%d)", int(code))
	}
}

// Error ошибка трекера статистики
type Error struct {
	Code      ErrorCode
	Message   string
	SessionID string
	Context   map[string]interface{}
	Wrapped   error
}

// Error реализует интерфейс error
func (e *Error) Error() string {
	if e.SessionID != "" {
		return fmt.Sprintf("[статистика:%s] сессия %s: %s", e.Code, e.SessionID, e.Message)
	}
	return fmt.Sprintf("[статистика:%s] %s", e.Code, e.Message)
}

// Unwrap возвращает обернутую ошибку
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is сравнивает ошибки по коду
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// GetContext возвращает значение из контекста ошибки по ключу
func (e *Error) GetContext(key string) interface{} {
	if e.Context == nil {
		return nil
	}
	return e.Context[key]
}

// HasErrorCode проверяет, содержит ли цепочка ошибок указанный код
func HasErrorCode(err error, code ErrorCode) bool {
	var statsErr *Error
	if errors.As(err, &statsErr) {
		return statsErr.Code == code
	}
	return false
}
