package packet

import (
	"errors"
	"fmt"
)

// ErrorCode типизированный код ошибки слоя пакетов
type ErrorCode int

const (
	// ErrorCodeSizeMismatch длина буфера не равна HeaderSize + размер кадра
	ErrorCodeSizeMismatch ErrorCode = iota + 200
	// ErrorCodeBadExtension в RTP пакете нет расширения заголовка с индексом и временем
	ErrorCodeBadExtension
	// ErrorCodeBuffer буфер назначения слишком мал
	ErrorCodeBuffer
)

// String возвращает строковое представление кода ошибки
func (code ErrorCode) String() string {
	switch code {
	case ErrorCodeSizeMismatch:
		return "SizeMismatch"
	case ErrorCodeBadExtension:
		return "BadExtension"
	case ErrorCodeBuffer:
		return "Buffer"
	default:
		return fmt.Sprintf("Unknown(%d)", int(code))
	}
}

// Error ошибка разбора или сборки голосового пакета
type Error struct {
	Code     ErrorCode
	Message  string
	SenderID uint32
	Context  map[string]interface{}
	Wrapped  error
}

// Error реализует интерфейс error
func (e *Error) Error() string {
	return fmt.Sprintf("[пакет:%s] %s", e.Code, e.Message)
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

func newSizeError(code ErrorCode, expected, actual int) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf("ожидается %d байт, получено %d", expected, actual),
		Context: map[string]interface{}{
			"expected_size": expected,
			"actual_size":   actual,
		},
	}
}

// HasErrorCode проверяет, содержит ли цепочка ошибок указанный код
func HasErrorCode(err error, code ErrorCode) bool {
	var pktErr *Error
	if errors.As(err, &pktErr) {
		return pktErr.Code == code
	}
	return false
}
