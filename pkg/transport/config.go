package transport

import (
	"fmt"
	"log/slog"
	"time"
)

// Mode формат голосового пакета на проводе
type Mode int

const (
	// ModeRaw 16 байт заголовка и кадр без обрамления
	ModeRaw Mode = iota
	// ModeRTP пакет в RTP с расширением заголовка
	ModeRTP
)

func (m Mode) String() string {
	switch m {
	case ModeRaw:
		return "raw"
	case ModeRTP:
		return "rtp"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode разбирает имя режима ("raw", "rtp")
func ParseMode(s string) (Mode, error) {
	switch s {
	case "raw", "":
		return ModeRaw, nil
	case "rtp":
		return ModeRTP, nil
	}
	return 0, fmt.Errorf("неизвестный режим транспорта %q", s)
}

// DSCPExpeditedForwarding класс EF для голосового трафика
const DSCPExpeditedForwarding = 46

// Config содержит настройки UDP транспорта
type Config struct {
	LocalAddr  string // Локальный адрес (например, ":5004")
	RemoteAddr string // Удаленный адрес, может быть установлен позже
	BufferSize int    // Размер буфера чтения

	// FrameSize размер кадра активного кодека. Датаграммы, длина которых
	// не соответствует кадру, отбрасываются до разбора.
	FrameSize   int
	Mode        Mode
	PayloadType uint8 // для ModeRTP

	DSCP        int  // DSCP маркировка исходящих пакетов, 0 отключает
	ReusePort   bool // SO_REUSEPORT (Linux)
	ReadTimeout time.Duration

	Logger *slog.Logger
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		LocalAddr:   "127.0.0.1:0",
		BufferSize:  1500,
		FrameSize:   160,
		Mode:        ModeRaw,
		DSCP:        DSCPExpeditedForwarding,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// Validate проверяет корректность конфигурации
func (c Config) Validate() error {
	if c.LocalAddr == "" {
		return fmt.Errorf("LocalAddr не может быть пустым")
	}
	if c.FrameSize < 0 {
		return fmt.Errorf("FrameSize не может быть отрицательным: %d", c.FrameSize)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("BufferSize должен быть больше 0")
	}
	if c.DSCP < 0 || c.DSCP > 63 {
		return fmt.Errorf("DSCP вне диапазона 0..63: %d", c.DSCP)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("ReadTimeout должен быть больше 0")
	}
	return nil
}
