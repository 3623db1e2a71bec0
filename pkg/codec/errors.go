package codec

import (
	"errors"
	"fmt"
)

// ErrorCode типизированный код ошибки слоя кодеков
type ErrorCode int

const (
	// ErrorCodeUnsupportedCodec запрошен неизвестный кодек
	ErrorCodeUnsupportedCodec ErrorCode = iota + 100
	// ErrorCodeUnsupportedRate запрошена скорость G.726, отличная от 16/24/32/40
	ErrorCodeUnsupportedRate
	// ErrorCodeFrameSize размер кадра или полезной нагрузки не совпадает с ожидаемым
	ErrorCodeFrameSize
)

// String возвращает строковое представление кода ошибки
func (code ErrorCode) String() string {
	switch code {
	case ErrorCodeUnsupportedCodec:
		return "UnsupportedCodec"
	case ErrorCodeUnsupportedRate:
		return "UnsupportedRate"
	case ErrorCodeFrameSize:
		return "FrameSize"
	default:
		return fmt.Sprintf("Unknown(%d)", int(code))
	}
}

// Error ошибка слоя кодеков с кодом и контекстом
type Error struct {
	Code    ErrorCode
	Message string
	Codec   string
	Context map[string]interface{}
	Wrapped error
}

// Error реализует интерфейс error
func (e *Error) Error() string {
	if e.Codec != "" {
		return fmt.Sprintf("[кодек:%s] %s: %s", e.Code, e.Codec, e.Message)
	}
	return fmt.Sprintf("[кодек:%s] %s", e.Code, e.Message)
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

func newFrameSizeError(codecName, what string, expected, actual int) *Error {
	return &Error{
		Code:    ErrorCodeFrameSize,
		Message: fmt.Sprintf("неверный размер (%s): ожидается %d, получено %d", what, expected, actual),
		Codec:   codecName,
		Context: map[string]interface{}{
			"expected_size": expected,
			"actual_size":   actual,
		},
	}
}

// HasErrorCode проверяет, содержит ли цепочка ошибок указанный код
func HasErrorCode(err error, code ErrorCode) bool {
	var codecErr *Error
	if errors.As(err, &codecErr) {
		return codecErr.Code == code
	}
	return false
}
