package stats

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Config конфигурация трекера статистики одного звонка
type Config struct {
	// SessionID идентификатор сессии для логов и ошибок
	SessionID string

	// Users количество абонентов, идентификаторы 0..Users-1
	Users int

	// PacketSize размер пакета на проводе в байтах (заголовок + кадр),
	// используется для оценки пропускной способности
	PacketSize int

	// ThroughputScale делитель пропускной способности (1000 дает кбит/с)
	ThroughputScale float64

	// MaxSamples ограничивает журнал времен пакетов каждого абонента,
	// старые записи вытесняются первыми. 0 без ограничения.
	MaxSamples int

	// Registerer регистрирует Prometheus метрики трекера. nil оставляет
	// метрики незарегистрированными.
	Registerer prometheus.Registerer

	// Namespace префикс Prometheus метрик
	Namespace string

	Logger *slog.Logger
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		Users:           1,
		PacketSize:      16 + 160,
		ThroughputScale: 1000,
		Namespace:       "voipsim",
	}
}

// Validate проверяет корректность конфигурации
func (c Config) Validate() error {
	if c.Users <= 0 {
		return invalidConfig("Users должен быть больше 0, получено %d", c.Users)
	}
	if c.PacketSize < 0 {
		return invalidConfig("PacketSize не может быть отрицательным: %d", c.PacketSize)
	}
	if c.ThroughputScale <= 0 {
		return invalidConfig("ThroughputScale должен быть больше 0, получено %v", c.ThroughputScale)
	}
	if c.MaxSamples < 0 {
		return invalidConfig("MaxSamples не может быть отрицательным: %d", c.MaxSamples)
	}
	return nil
}

func invalidConfig(format string, args ...interface{}) *Error {
	return &Error{
		Code:    ErrorCodeInvalidConfig,
		Message: fmt.Sprintf(format, args...),
	}
}
