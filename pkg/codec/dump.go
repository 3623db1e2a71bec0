package codec

import (
	"encoding/csv"
	"io"
	"strconv"
)

// FrameDumper пишет один кадр в CSV для диагностики кодека: строка
// исходных отсчетов, строка закодированных байт и строка декодированных
// отсчетов.
type FrameDumper struct {
	w *csv.Writer
}

// NewFrameDumper создает FrameDumper поверх w
func NewFrameDumper(w io.Writer) *FrameDumper {
	return &FrameDumper{w: csv.NewWriter(w)}
}

// Dump записывает три строки кадра и сбрасывает буфер
func (d *FrameDumper) Dump(raw []int16, encoded []byte, decoded []int16) error {
	rows := [][]string{
		samplesRow(raw),
		bytesRow(encoded),
		samplesRow(decoded),
	}
	if err := d.w.WriteAll(rows); err != nil {
		return err
	}
	return d.w.Error()
}

func samplesRow(samples []int16) []string {
	row := make([]string, len(samples))
	for i, s := range samples {
		row[i] = strconv.Itoa(int(s))
	}
	return row
}

func bytesRow(data []byte) []string {
	row := make([]string, len(data))
	for i, b := range data {
		row[i] = strconv.Itoa(int(b))
	}
	return row
}
