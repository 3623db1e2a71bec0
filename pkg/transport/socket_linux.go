//go:build linux

package transport

import (
	"golang.org/x/sys/unix"
)

// applySocketOptions настраивает сокет для голосового трафика (Linux)
func applySocketOptions(fd int, cfg Config) error {
	// SO_REUSEADDR для повторного запуска на том же порту
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return err
	}

	if cfg.ReusePort {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			return err
		}
	}

	if cfg.DSCP > 0 {
		// DSCP находится в старших 6 битах TOS поля. В контейнерах
		// установка может быть запрещена, это не критично.
		tos := cfg.DSCP << 2
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TOS, tos)
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_TCLASS, tos)
	}

	// приоритет интерактивного аудио
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_PRIORITY, 6)
	return nil
}
