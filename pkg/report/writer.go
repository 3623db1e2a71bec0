package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/arzzra/voip_sim/pkg/stats"
)

// AggregateRow идентификатор строки средних значений в CSV
const AggregateRow = "all"

var csvHeader = []string{
	"user", "received", "missed", "late",
	"loss_percent", "delay", "jitter", "throughput", "interval_throughput",
}

// WriteCSV пишет строку на каждого абонента и строку средних значений
func WriteCSV(w io.Writer, r stats.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	var received, missed, late uint64
	for _, u := range r.Users {
		row := append([]string{
			strconv.FormatUint(uint64(u.UserID), 10),
			strconv.FormatUint(uint64(u.Received), 10),
			strconv.FormatUint(uint64(u.Missed), 10),
			strconv.FormatUint(uint64(u.Late), 10),
		}, metricsRow(u.Metrics)...)
		if err := cw.Write(row); err != nil {
			return err
		}
		received += uint64(u.Received)
		missed += uint64(u.Missed)
		late += uint64(u.Late)
	}

	row := append([]string{
		AggregateRow,
		strconv.FormatUint(received, 10),
		strconv.FormatUint(missed, 10),
		strconv.FormatUint(late, 10),
	}, metricsRow(r.Aggregate)...)
	if err := cw.Write(row); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

func metricsRow(m stats.Metrics) []string {
	return []string{
		formatFloat(m.LossPercent),
		formatFloat(m.Delay),
		formatFloat(m.Jitter),
		formatFloat(m.Throughput),
		formatFloat(m.IntervalThroughput),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteJSON пишет отчет в JSON с отступами
func WriteJSON(w io.Writer, r stats.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteSummary пишет текстовую сводку для терминала
func WriteSummary(w io.Writer, r stats.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tRECV\tMISSED\tLATE\tLOSS %\tDELAY s\tJITTER s\tTHROUGHPUT")
	for _, u := range r.Users {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%.2f\t%.4f\t%.6f\t%.2f\n",
			u.UserID, u.Received, u.Missed, u.Late,
			u.LossPercent, u.Delay, u.Jitter, u.Throughput)
	}
	a := r.Aggregate
	fmt.Fprintf(tw, "%s\t%d\t\t\t%.2f\t%.4f\t%.6f\t%.2f\n",
		AggregateRow, r.TotalReceived, a.LossPercent, a.Delay, a.Jitter, a.Throughput)
	if r.AddressingErrors > 0 {
		fmt.Fprintf(tw, "ошибок адресации: %d\n", r.AddressingErrors)
	}
	return tw.Flush()
}
