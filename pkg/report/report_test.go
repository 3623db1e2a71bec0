package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arzzra/voip_sim/pkg/stats"
	"github.com/pion/rtcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() stats.Report {
	return stats.Report{
		SessionID: "call-1",
		Users: []stats.UserReport{
			{UserID: 0, Received: 5, Missed: 1, NextExpectedIndex: 6,
				Metrics: stats.Metrics{Delay: 0.0167, Jitter: 0.02, LossPercent: 16.666666666666668, Throughput: 84.3}},
			{UserID: 1, Received: 6, Late: 1, NextExpectedIndex: 5,
				Metrics: stats.Metrics{Delay: 0.01, Throughput: 140.8}},
		},
		Aggregate:     stats.Metrics{Delay: 0.01335, Jitter: 0.01, LossPercent: 8.333333333333334, Throughput: 112.55},
		TotalReceived: 11,
		Final:         true,
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleReport()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4, "заголовок, два абонента и строка средних")

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"0", "5", "1", "0", "16.666666666666668", "0.0167", "0.02", "84.3", "0"}, rows[1])
	assert.Equal(t, "1", rows[2][0])
	assert.Equal(t, []string{AggregateRow, "11", "1", "1"}, rows[3][:4])
	assert.Equal(t, "0.01335", rows[3][5])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReport()))

	var got stats.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sampleReport(), got)
	assert.Contains(t, buf.String(), `"loss_percent"`)
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	r := sampleReport()
	r.AddressingErrors = 2
	require.NoError(t, WriteSummary(&buf, r))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "USER"))
	assert.Contains(t, lines[1], "16.67")
	assert.True(t, strings.HasPrefix(lines[3], AggregateRow))
	assert.Contains(t, lines[4], "2")
}

func get(t *testing.T, h http.Handler, path string) (*http.Response, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	res := rec.Result()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(body)
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "voipsim_test_total", Help: "тест"})
	reg.MustRegister(counter)
	counter.Add(3)

	router := NewHandler(Static(sampleReport()), reg, nil).SetupRoutes()

	t.Run("отчет", func(t *testing.T) {
		res, body := get(t, router, "/report")
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "application/json", res.Header.Get("Content-Type"))

		var got stats.Report
		require.NoError(t, json.Unmarshal([]byte(body), &got))
		assert.Equal(t, "call-1", got.SessionID)
		assert.Len(t, got.Users, 2)
	})

	t.Run("абонент", func(t *testing.T) {
		res, body := get(t, router, "/report/users/1")
		assert.Equal(t, http.StatusOK, res.StatusCode)

		var got stats.UserReport
		require.NoError(t, json.Unmarshal([]byte(body), &got))
		assert.Equal(t, uint32(1), got.UserID)
		assert.Equal(t, uint32(1), got.Late)
	})

	t.Run("неизвестный абонент", func(t *testing.T) {
		res, _ := get(t, router, "/report/users/7")
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	t.Run("идентификатор вне uint32", func(t *testing.T) {
		res, _ := get(t, router, "/report/users/99999999999")
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("не число", func(t *testing.T) {
		res, _ := get(t, router, "/report/users/abc")
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	t.Run("csv", func(t *testing.T) {
		res, body := get(t, router, "/report.csv")
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.True(t, strings.HasPrefix(body, "user,received"))
	})

	t.Run("метрики", func(t *testing.T) {
		res, body := get(t, router, "/metrics")
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Contains(t, body, "voipsim_test_total 3")
	})

	t.Run("rtcp", func(t *testing.T) {
		res, body := get(t, router, "/report/rtcp")
		assert.Equal(t, http.StatusOK, res.StatusCode)

		packets, err := rtcp.Unmarshal([]byte(body))
		require.NoError(t, err)
		require.Len(t, packets, 1)
		rr, ok := packets[0].(*rtcp.ReceiverReport)
		require.True(t, ok)
		assert.Equal(t, stats.ServerSSRC, rr.SSRC)
		require.Len(t, rr.Reports, 2)
		assert.Equal(t, uint8(42), rr.Reports[0].FractionLost)
		assert.Equal(t, uint32(5), rr.Reports[0].LastSequenceNumber)
		assert.Equal(t, uint32(160), rr.Reports[0].Jitter)
	})

	t.Run("healthz", func(t *testing.T) {
		res, body := get(t, router, "/healthz")
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "ok", body)
	})

	t.Run("метод не разрешен", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/report", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestHandlerWithTracker(t *testing.T) {
	cfg := stats.DefaultConfig()
	cfg.Users = 2
	tracker, err := stats.NewTracker(cfg)
	require.NoError(t, err)
	require.NoError(t, tracker.OnPacketReceived(1, 0, 1.0, 1.01))

	router := NewHandler(tracker, nil, nil).SetupRoutes()

	res, body := get(t, router, "/report/users/1")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `"received":1`)

	res, _ = get(t, router, "/metrics")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

// brokenWriter ResponseWriter, у которого запись тела всегда завершается ошибкой
type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (w brokenWriter) Write([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestHandlerWriteErrorsLogged(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	h := NewHandler(Static(sampleReport()), nil, logger)

	for _, path := range []string{"/healthz", "/report/rtcp"} {
		t.Run(path, func(t *testing.T) {
			logs.Reset()
			w := brokenWriter{httptest.NewRecorder()}
			h.SetupRoutes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Contains(t, logs.String(), io.ErrClosedPipe.Error())
			assert.Contains(t, logs.String(), `"component":"report_http"`)
		})
	}
}
