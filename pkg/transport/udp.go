package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/arzzra/voip_sim/pkg/packet"
)

// Handler получает разобранный пакет, адрес отправителя и время приема
type Handler func(p *packet.VoicePacket, from net.Addr, receivedAt time.Time)

// UDPTransport передает голосовые пакеты по UDP.
// Send и Receive безопасны для одновременного вызова из разных горутин.
type UDPTransport struct {
	conn       *net.UDPConn
	remoteAddr *net.UDPAddr
	config     Config
	logger     *slog.Logger

	active bool
	mutex  sync.RWMutex
}

// NewUDPTransport создает UDP транспорт и привязывает его к cfg.LocalAddr
func NewUDPTransport(ctx context.Context, cfg Config) (*UDPTransport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var sockErr error
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			if err := c.Control(func(fd uintptr) {
				sockErr = applySocketOptions(int(fd), cfg)
			}); err != nil {
				return err
			}
			return sockErr
		},
	}

	pc, err := lc.ListenPacket(ctx, "udp", cfg.LocalAddr)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания UDP соединения: %w", err)
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, fmt.Errorf("неожиданный тип соединения %T", pc)
	}

	t := &UDPTransport{
		conn:   conn,
		config: cfg,
		active: true,
		logger: logger.With(slog.String("component", "transport"), slog.String("local", conn.LocalAddr().String())),
	}

	if cfg.RemoteAddr != "" {
		if err := t.SetRemoteAddr(cfg.RemoteAddr); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return t, nil
}

// PacketSize ожидаемый размер датаграммы для текущего режима
func (t *UDPTransport) PacketSize() int {
	if t.config.Mode == ModeRTP {
		return packet.RTPSize(t.config.FrameSize)
	}
	return packet.Size(t.config.FrameSize)
}

// encode сериализует пакет в формат режима
func (t *UDPTransport) encode(p *packet.VoicePacket) ([]byte, error) {
	if t.config.Mode == ModeRTP {
		return p.MarshalRTP(t.config.PayloadType)
	}
	return p.Marshal(), nil
}

// decode разбирает датаграмму. В режиме raw длина проверяется до чтения полей.
func (t *UDPTransport) decode(data []byte) (*packet.VoicePacket, error) {
	if t.config.Mode == ModeRTP {
		return packet.UnmarshalRTP(data, t.config.FrameSize)
	}
	return packet.Unmarshal(data, t.config.FrameSize)
}

// Send отправляет пакет удаленной стороне
func (t *UDPTransport) Send(ctx context.Context, p *packet.VoicePacket) error {
	data, err := t.encode(p)
	if err != nil {
		return err
	}
	return t.SendBytes(ctx, data)
}

// SendBytes отправляет готовую датаграмму
func (t *UDPTransport) SendBytes(ctx context.Context, data []byte) error {
	t.mutex.RLock()
	active := t.active
	conn := t.conn
	remoteAddr := t.remoteAddr
	t.mutex.RUnlock()

	if !active {
		return fmt.Errorf("транспорт не активен")
	}
	if remoteAddr == nil {
		return fmt.Errorf("удаленный адрес не установлен")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if _, err := conn.WriteToUDP(data, remoteAddr); err != nil {
		return classifyNetworkError("UDP write", err)
	}
	return nil
}

// Receive читает одну датаграмму и разбирает голосовой пакет.
// Возвращает ошибку таймаута, если за ReadTimeout ничего не пришло.
func (t *UDPTransport) Receive(ctx context.Context) (*packet.VoicePacket, net.Addr, error) {
	t.mutex.RLock()
	active := t.active
	conn := t.conn
	bufferSize := t.config.BufferSize
	timeout := t.config.ReadTimeout
	t.mutex.RUnlock()

	if !active {
		return nil, nil, fmt.Errorf("транспорт не активен")
	}

	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	default:
	}

	buffer := make([]byte, bufferSize)

	// Таймаут чтобы периодически проверять контекст
	_ = conn.SetReadDeadline(time.Now().Add(timeout))

	n, addr, err := conn.ReadFromUDP(buffer)
	if err != nil {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}
		return nil, nil, classifyNetworkError("UDP read", err)
	}

	// Автоматически устанавливаем удаленный адрес при первом пакете
	t.mutex.Lock()
	if t.remoteAddr == nil {
		t.remoteAddr = addr
	}
	t.mutex.Unlock()

	p, err := t.decode(buffer[:n])
	if err != nil {
		return nil, addr, err
	}
	return p, addr, nil
}

// Serve принимает пакеты до отмены ctx или закрытия транспорта.
// Пакеты неверного размера журналируются и пропускаются.
func (t *UDPTransport) Serve(ctx context.Context, handler Handler) error {
	for {
		p, addr, err := t.Receive(ctx)
		switch {
		case err == nil:
			handler(p, addr, time.Now())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case IsTimeout(err):
			continue
		case errors.Is(err, net.ErrClosed):
			return nil
		case !t.IsActive():
			return nil
		default:
			t.logger.Warn("пакет отброшен", slog.String("error", err.Error()))
		}
	}
}

// LocalAddr возвращает локальный адрес
func (t *UDPTransport) LocalAddr() net.Addr {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if t.conn == nil {
		return nil
	}
	return t.conn.LocalAddr()
}

// RemoteAddr возвращает удаленный адрес
func (t *UDPTransport) RemoteAddr() net.Addr {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	if t.remoteAddr == nil {
		return nil
	}
	return t.remoteAddr
}

// SetRemoteAddr устанавливает удаленный адрес
func (t *UDPTransport) SetRemoteAddr(addr string) error {
	remoteAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("ошибка разрешения удаленного адреса: %w", err)
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.remoteAddr = remoteAddr
	return nil
}

// Close закрывает транспорт
func (t *UDPTransport) Close() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !t.active {
		return nil
	}
	t.active = false

	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}

// IsActive проверяет активность транспорта
func (t *UDPTransport) IsActive() bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.active
}
