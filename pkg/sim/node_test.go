package sim

import (
	"context"
	"testing"

	"github.com/arzzra/voip_sim/pkg/codec"
	"github.com/arzzra/voip_sim/pkg/packet"
	"github.com/arzzra/voip_sim/pkg/stats"
	"github.com/arzzra/voip_sim/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTone(t *testing.T) {
	assert.Equal(t, int16(0), Tone(0))
	assert.InDelta(t, ToneAmplitude, Tone(1.0/(4*ToneFrequency)), 1)
	assert.InDelta(t, -ToneAmplitude, Tone(3.0/(4*ToneFrequency)), 1)
}

func TestClientNextPacket(t *testing.T) {
	c, err := codec.New(codec.KindG726, codec.Rate24)
	require.NoError(t, err)
	clock := packet.NewManualClock(1.5)
	client := NewClient(7, c, clock, nil)

	p, err := client.NextPacket()
	require.NoError(t, err)
	assert.Equal(t, uint32(7), p.SenderID)
	assert.Equal(t, uint32(0), p.Index)
	assert.Equal(t, 1.5, p.SentTime)
	assert.Len(t, p.Payload, 60)

	clock.Advance(PacketInterval)
	p, err = client.NextPacket()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), p.Index)
	assert.InDelta(t, 1.52, p.SentTime, 1e-12)
	assert.Equal(t, uint32(2), client.Sent())
}

func newTestServer(t *testing.T, users int, mode transport.Mode) (*Server, *stats.Tracker) {
	t.Helper()
	cfg := stats.DefaultConfig()
	cfg.Users = users
	tracker, err := stats.NewTracker(cfg)
	require.NoError(t, err)

	server, err := NewServer(tracker, mode, func() (codec.Codec, error) {
		return codec.New(codec.KindG711, 0)
	}, nil)
	require.NoError(t, err)
	return server, tracker
}

func TestServerHandleDatagram(t *testing.T) {
	server, tracker := newTestServer(t, 2, transport.ModeRaw)

	p := &packet.VoicePacket{SenderID: 1, Index: 0, SentTime: 1.0, Payload: make([]byte, 160)}
	require.NoError(t, server.HandleDatagram(p.Marshal(), 1.02))
	assert.Equal(t, uint64(1), server.Decoded())

	t.Run("неверный размер", func(t *testing.T) {
		err := server.HandleDatagram(make([]byte, 100), 1.1)
		assert.True(t, packet.HasErrorCode(err, packet.ErrorCodeSizeMismatch))
	})

	t.Run("абонент вне диапазона", func(t *testing.T) {
		bad := &packet.VoicePacket{SenderID: 2, Payload: make([]byte, 160)}
		err := server.HandleDatagram(bad.Marshal(), 1.1)
		assert.True(t, stats.HasErrorCode(err, stats.ErrorCodeAddressing))
	})

	report := tracker.Finalize()
	assert.Equal(t, uint64(1), report.TotalReceived)
	assert.Equal(t, uint64(1), report.AddressingErrors)
	assert.Equal(t, uint64(1), server.Decoded())
}

func TestServerRTPMode(t *testing.T) {
	server, tracker := newTestServer(t, 1, transport.ModeRTP)

	p := &packet.VoicePacket{SenderID: 0, Index: 3, SentTime: 2.0, Payload: make([]byte, 160)}
	data, err := p.MarshalRTP(codec.PayloadTypePCMU)
	require.NoError(t, err)
	require.NoError(t, server.HandleDatagram(data, 2.01))

	u, ok := tracker.Snapshot().User(0)
	require.True(t, ok)
	assert.Equal(t, uint32(3), u.Missed)
	assert.Equal(t, uint32(4), u.NextExpectedIndex)
}

// g726Frames кодирует n кадров тона клиентом с G.726-32
func g726Frames(t *testing.T, n int) []*packet.VoicePacket {
	t.Helper()
	enc, err := codec.New(codec.KindG726, codec.Rate32)
	require.NoError(t, err)
	clock := packet.NewManualClock(0)
	client := NewClient(0, enc, clock, nil)

	frames := make([]*packet.VoicePacket, n)
	for i := range frames {
		frames[i], err = client.NextPacket()
		require.NoError(t, err)
		clock.Advance(PacketInterval)
	}
	return frames
}

func newG726Server(t *testing.T) (*Server, map[uint32][]int16) {
	t.Helper()
	cfg := stats.DefaultConfig()
	tracker, err := stats.NewTracker(cfg)
	require.NoError(t, err)

	server, err := NewServer(tracker, transport.ModeRaw, func() (codec.Codec, error) {
		return codec.New(codec.KindG726, codec.Rate32)
	}, nil)
	require.NoError(t, err)

	out := make(map[uint32][]int16)
	server.SetSink(func(user, index uint32, samples []int16) {
		_, dup := out[index]
		require.False(t, dup, "кадр %d декодирован повторно", index)
		out[index] = samples
	})
	return server, out
}

func TestServerDecoderOrder(t *testing.T) {
	frames := g726Frames(t, 4)

	ref, err := codec.New(codec.KindG726, codec.Rate32)
	require.NoError(t, err)
	want := make([][]int16, len(frames))
	for i, p := range frames {
		want[i], err = ref.DecodeFrame(p.Payload)
		require.NoError(t, err)
	}

	t.Run("дубликат", func(t *testing.T) {
		server, out := newG726Server(t)
		for i, idx := range []int{0, 1, 1, 2, 3} {
			require.NoError(t, server.HandlePacket(frames[idx], float64(i)))
		}
		assert.Equal(t, uint64(4), server.Decoded())
		for i := range frames {
			assert.Equal(t, want[i], out[uint32(i)], "кадр %d", i)
		}
	})

	t.Run("перестановка", func(t *testing.T) {
		server, out := newG726Server(t)
		for i, idx := range []int{0, 2, 1, 3} {
			require.NoError(t, server.HandlePacket(frames[idx], float64(i)))
		}
		assert.Equal(t, uint64(3), server.Decoded())
		assert.NotContains(t, out, uint32(1))
		assert.Equal(t, want[0], out[0])

		// после пропуска декодер начинает с начального состояния
		fresh, err := codec.New(codec.KindG726, codec.Rate32)
		require.NoError(t, err)
		for _, i := range []int{2, 3} {
			got, err := fresh.DecodeFrame(frames[i].Payload)
			require.NoError(t, err)
			assert.Equal(t, got, out[uint32(i)], "кадр %d", i)
		}
	})
}

func TestLinkDeterministic(t *testing.T) {
	cfg := LinkConfig{Loss: 0.2, Delay: 0.03, Jitter: 0.01, Duplicate: 0.1}
	a, b := NewLink(cfg, 7), NewLink(cfg, 7)
	for i := 0; i < 1000; i++ {
		sent := float64(i) * PacketInterval
		assert.Equal(t, a.Transmit(sent), b.Transmit(sent))
	}
}

func TestLinkModel(t *testing.T) {
	t.Run("без искажений", func(t *testing.T) {
		l := NewLink(LinkConfig{Delay: 0.01}, 1)
		arrivals := l.Transmit(1.0)
		require.Len(t, arrivals, 1)
		assert.InDelta(t, 1.01, arrivals[0], 1e-12)
	})

	t.Run("доля потерь", func(t *testing.T) {
		l := NewLink(LinkConfig{Loss: 0.2}, 3)
		lost := 0
		for i := 0; i < 10000; i++ {
			if len(l.Transmit(0)) == 0 {
				lost++
			}
		}
		assert.InDelta(t, 2000, lost, 300)
	})

	t.Run("задержка в пределах джиттера", func(t *testing.T) {
		l := NewLink(LinkConfig{Delay: 0.005, Jitter: 0.01}, 5)
		for i := 0; i < 1000; i++ {
			arrivals := l.Transmit(1.0)
			require.Len(t, arrivals, 1)
			assert.GreaterOrEqual(t, arrivals[0], 1.0)
			assert.LessOrEqual(t, arrivals[0], 1.015)
		}
	})
}

func TestRunLive(t *testing.T) {
	if testing.Short() {
		t.Skip("сетевой тест в реальном времени")
	}

	cfg := DefaultConfig()
	cfg.Users = 2
	cfg.Duration = 0.2
	cfg.Link = LinkConfig{}

	report, err := RunLive(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, report.Users, 2)
	for _, u := range report.Users {
		assert.Equal(t, uint32(10), u.Received, "абонент %d", u.UserID)
		assert.Zero(t, u.Missed)
		assert.Positive(t, u.Delay+u.Throughput)
	}
}
