package media_sdp

import (
	"net"
	"strconv"
)

// RemoteAddr возвращает адрес host:port для отправки RTP по выбору из SDP
func (s Selection) RemoteAddr() string {
	return net.JoinHostPort(s.Address, strconv.Itoa(s.Port))
}
