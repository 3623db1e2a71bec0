package stats

import (
	"math"

	"github.com/pion/rtcp"
)

const (
	// rtpClockRate частота RTP часов для перевода джиттера в единицы timestamp
	rtpClockRate = 8000
	// maxReportsPerPacket максимум ReceptionReport в одном RR (5-битное поле RC)
	maxReportsPerPacket = 31
	// maxTotalLost 24-битное поле cumulative lost
	maxTotalLost = 0x7FFFFF
)

// ServerSSRC SSRC принимающей стороны в RTCP отчетах
const ServerSSRC uint32 = 0x564F4950

// ReceptionReports строит RTCP ReceptionReport на каждого абонента отчета.
// SSRC абонента равен его идентификатору.
func (r *Report) ReceptionReports() []rtcp.ReceptionReport {
	reports := make([]rtcp.ReceptionReport, 0, len(r.Users))
	for _, u := range r.Users {
		reports = append(reports, u.ReceptionReport())
	}
	return reports
}

// ReceptionReport RTCP отчет о приеме для абонента
func (u UserReport) ReceptionReport() rtcp.ReceptionReport {
	fracLost := math.Min(u.LossPercent/100*256, 255)

	var lastSeq uint32
	if u.NextExpectedIndex > 0 {
		lastSeq = u.NextExpectedIndex - 1
	}

	return rtcp.ReceptionReport{
		SSRC:               u.UserID,
		FractionLost:       uint8(fracLost),
		TotalLost:          min(u.Missed, maxTotalLost),
		LastSequenceNumber: lastSeq,
		Jitter:             uint32(math.Round(u.Jitter * rtpClockRate)),
	}
}

// ReceiverReports разбивает отчеты о приеме на RTCP Receiver Report
// пакеты отправителя ssrc
func (r *Report) ReceiverReports(ssrc uint32) []rtcp.Packet {
	reports := r.ReceptionReports()
	packets := make([]rtcp.Packet, 0, len(reports)/maxReportsPerPacket+1)
	for len(reports) > maxReportsPerPacket {
		packets = append(packets, &rtcp.ReceiverReport{SSRC: ssrc, Reports: reports[:maxReportsPerPacket]})
		reports = reports[maxReportsPerPacket:]
	}
	packets = append(packets, &rtcp.ReceiverReport{SSRC: ssrc, Reports: reports})
	return packets
}

// MarshalRTCP сериализует составной RTCP пакет с отчетами о приеме
func (r *Report) MarshalRTCP(ssrc uint32) ([]byte, error) {
	return rtcp.Marshal(r.ReceiverReports(ssrc))
}
