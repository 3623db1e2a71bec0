// Package stats считает метрики качества звонка по принятым пакетам:
// потери, джиттер, задержку и пропускную способность по каждому абоненту
// и средние по звонку.
//
// Потери определяются по разрывам в индексах пакетов абонента. Пакет с
// индексом меньше ожидаемого (опоздавший или дубликат) попадает в журнал
// задержек, но не влияет на счетчики потерь.
//
//	tr, err := stats.NewTracker(stats.Config{Users: 2, PacketSize: 176, ThroughputScale: 1000})
//	...
//	tr.OnPacketReceived(pkt.SenderID, pkt.Index, pkt.SentTime, now)
//	...
//	report := tr.Finalize()
//
// Итоговый отчет может быть выгружен в RTCP Receiver Report и в
// Prometheus метрики.
package stats
