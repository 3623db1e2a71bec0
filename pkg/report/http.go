package report

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/arzzra/voip_sim/pkg/stats"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Source источник отчета. Реализуется *stats.Tracker.
type Source interface {
	Snapshot() stats.Report
}

// Static источник с неизменным отчетом
type Static stats.Report

// Snapshot возвращает сохраненный отчет
func (s Static) Snapshot() stats.Report {
	return stats.Report(s)
}

// Handler HTTP API отчета
type Handler struct {
	source   Source
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// NewHandler создает обработчик. gatherer nil отключает /metrics.
func NewHandler(source Source, gatherer prometheus.Gatherer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		source:   source,
		gatherer: gatherer,
		logger:   logger.With(slog.String("component", "report_http")),
	}
}

// SetupRoutes настраивает маршруты API
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)
	router.HandleFunc("/report", h.Report).Methods(http.MethodGet)
	router.HandleFunc("/report.csv", h.ReportCSV).Methods(http.MethodGet)
	router.HandleFunc("/report/users/{id:[0-9]+}", h.User).Methods(http.MethodGet)
	router.HandleFunc("/report/rtcp", h.RTCP).Methods(http.MethodGet)

	if h.gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return router
}

// Healthz проверка доступности сервиса
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		h.logger.Error("ошибка записи ответа", slog.String("error", err.Error()))
	}
}

// Report отдает отчет целиком в JSON
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.source.Snapshot())
}

// ReportCSV отдает отчет в CSV
func (h *Handler) ReportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	if err := WriteCSV(w, h.source.Snapshot()); err != nil {
		h.logger.Error("ошибка записи CSV", slog.String("error", err.Error()))
	}
}

// User отдает отчет одного абонента
func (h *Handler) User(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "некорректный идентификатор абонента")
		return
	}

	report := h.source.Snapshot()
	u, ok := report.User(uint32(id))
	if !ok {
		h.writeError(w, http.StatusNotFound, "абонент не найден")
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}

// RTCP отдает составной RTCP пакет с Receiver Report по всем абонентам
func (h *Handler) RTCP(w http.ResponseWriter, r *http.Request) {
	report := h.source.Snapshot()
	data, err := report.MarshalRTCP(stats.ServerSSRC)
	if err != nil {
		h.logger.Error("ошибка сборки RTCP", slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "не удалось собрать RTCP отчет")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := w.Write(data); err != nil {
		h.logger.Error("ошибка записи RTCP", slog.String("error", err.Error()))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("ошибка записи ответа", slog.String("error", err.Error()))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
