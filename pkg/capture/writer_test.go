package capture

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterProducesReadablePcap(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)

	src := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 4000}
	dst := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 2), Port: 5004}
	ts := time.Unix(100, 20_000_000)
	payload := []byte{1, 2, 3, 4, 5}

	require.NoError(t, w.WritePacket(ts, src, dst, payload))
	assert.Equal(t, 1, w.Count())

	r, err := pcapgo.NewReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, layers.LinkTypeEthernet, r.LinkType())

	data, ci, err := r.ReadPacketData()
	require.NoError(t, err)
	assert.True(t, ts.Equal(ci.Timestamp))

	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
	ipLayer, ok := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", ipLayer.SrcIP.String())
	assert.Equal(t, "10.0.0.2", ipLayer.DstIP.String())

	udpLayer, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
	require.True(t, ok)
	assert.Equal(t, layers.UDPPort(4000), udpLayer.SrcPort)
	assert.Equal(t, layers.UDPPort(5004), udpLayer.DstPort)
	assert.Equal(t, payload, udpLayer.Payload)
}

func TestWriterRejectsIPv6(t *testing.T) {
	w, err := NewWriter(&bytes.Buffer{})
	require.NoError(t, err)

	src := &net.UDPAddr{IP: net.ParseIP("::1"), Port: 1}
	dst := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 2}
	assert.Error(t, w.WritePacket(time.Now(), src, dst, nil))
	assert.Zero(t, w.Count())
}
