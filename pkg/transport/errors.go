package transport

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// NetworkErrorType определяет типы сетевых ошибок
type NetworkErrorType int

const (
	ErrorTypeTimeout    NetworkErrorType = iota // Таймаут чтения (нормальное поведение)
	ErrorTypeConnection                         // Проблемы соединения
	ErrorTypeClosed                             // Сокет закрыт
	ErrorTypeUnknown                            // Неклассифицированная ошибка
)

func (t NetworkErrorType) String() string {
	switch t {
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeConnection:
		return "connection"
	case ErrorTypeClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ClassifiedError обертка для сетевых ошибок с типом
type ClassifiedError struct {
	Type      NetworkErrorType
	Operation string
	Err       error
	Retryable bool
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %s (type: %s, retryable: %t)", e.Operation, e.Err.Error(), e.Type, e.Retryable)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// classifyNetworkError анализирует сетевую ошибку
func classifyNetworkError(operation string, err error) error {
	if err == nil {
		return nil
	}

	classified := &ClassifiedError{Operation: operation, Err: err, Type: ErrorTypeUnknown}

	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		classified.Type = ErrorTypeTimeout
		classified.Retryable = true
	case errors.Is(err, net.ErrClosed):
		classified.Type = ErrorTypeClosed
	case isConnectionError(err):
		classified.Type = ErrorTypeConnection
		classified.Retryable = true
	}
	return classified
}

// isConnectionError проверяет является ли ошибка связанной с соединением
func isConnectionError(err error) bool {
	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"network is unreachable",
		"host is unreachable",
		"no route to host",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// IsTimeout сообщает, что ошибка является таймаутом чтения
func IsTimeout(err error) bool {
	var ce *ClassifiedError
	return errors.As(err, &ce) && ce.Type == ErrorTypeTimeout
}
