// Package capture пишет голосовые пакеты симуляции в pcap файл, чтобы
// звонок можно было открыть в Wireshark.
package capture

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// snapLen максимальная длина сохраняемого кадра
const snapLen = 65535

var (
	srcMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	dstMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
)

// Writer упаковывает полезную нагрузку в Ethernet/IPv4/UDP и пишет в pcap.
// Безопасен для вызова из нескольких горутин.
type Writer struct {
	mu    sync.Mutex
	w     *pcapgo.Writer
	ipID  uint16
	count int
}

// NewWriter пишет заголовок pcap файла в w
func NewWriter(w io.Writer) (*Writer, error) {
	pw := pcapgo.NewWriterNanos(w)
	if err := pw.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("ошибка записи заголовка pcap: %w", err)
	}
	return &Writer{w: pw}, nil
}

// WritePacket записывает одну UDP датаграмму от src к dst с меткой времени ts
func (w *Writer) WritePacket(ts time.Time, src, dst *net.UDPAddr, payload []byte) error {
	srcIP, dstIP := src.IP.To4(), dst.IP.To4()
	if srcIP == nil || dstIP == nil {
		return fmt.Errorf("поддерживаются только IPv4 адреса: %s -> %s", src, dst)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.ipID++
	eth := &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       dstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Id:       w.ipID,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    srcIP,
		DstIP:    dstIP,
		TOS:      46 << 2,
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(src.Port),
		DstPort: layers.UDPPort(dst.Port),
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return err
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		return fmt.Errorf("ошибка сборки кадра: %w", err)
	}

	data := buf.Bytes()
	ci := gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(data),
		Length:        len(data),
	}
	if err := w.w.WritePacket(ci, data); err != nil {
		return err
	}
	w.count++
	return nil
}

// Count количество записанных пакетов
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}
