//go:build !linux

package transport

// applySocketOptions на остальных платформах сокет не настраивается
func applySocketOptions(fd int, cfg Config) error {
	return nil
}
