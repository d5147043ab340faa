package handlers

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cleaning-calculator/internal/logger"
	"cleaning-calculator/internal/models"
)

const statsTimeout = 5 * time.Second

// StatsHandler отдаёт сводку по заявкам.
type StatsHandler struct {
	service QuoteStatsProvider
	log     *logger.Logger
}

// NewStatsHandler создает обработчик статистики.
func NewStatsHandler(service QuoteStatsProvider, log *logger.Logger) *StatsHandler {
	return &StatsHandler{service: service, log: log}
}

// QuoteStats возвращает статистику за период from..to (YYYY-MM-DD) с опциональным CSV.
func (h *StatsHandler) QuoteStats(w http.ResponseWriter, r *http.Request) {
	from, to, format, err := parseStatsQuery(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), statsTimeout)
	defer cancel()

	stats, err := h.service.QuoteStats(ctx, from, to)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load quote stats")
		return
	}

	if format == "csv" {
		if err := writeStatsCSV(w, stats); err != nil {
			h.log.WithError(err).Warn("Failed to stream stats CSV")
		}
		return
	}

	writeSuccess(w, http.StatusOK, stats)
}

// parseStatsQuery возвращает нулевые from/to, если параметры не заданы.
func parseStatsQuery(r *http.Request) (time.Time, time.Time, string, error) {
	query := r.URL.Query()

	var from, to time.Time
	if v := query.Get("from"); v != "" {
		parsed, err := time.Parse(models.DateLayout, v)
		if err != nil {
			return from, to, "", fmt.Errorf("invalid 'from' date, expected YYYY-MM-DD")
		}
		from = startOfDay(parsed)
	}
	if v := query.Get("to"); v != "" {
		parsed, err := time.Parse(models.DateLayout, v)
		if err != nil {
			return from, to, "", fmt.Errorf("invalid 'to' date, expected YYYY-MM-DD")
		}
		to = endOfDay(parsed)
	}

	format := strings.ToLower(query.Get("format"))
	if format != "" && format != "json" && format != "csv" {
		return from, to, "", fmt.Errorf("format must be json or csv")
	}
	return from, to, format, nil
}

func writeStatsCSV(w http.ResponseWriter, stats *models.QuoteStats) error {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=quote-stats.csv")
	w.WriteHeader(http.StatusOK)

	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"period", "total_quotes", "total_value", "average_value", "approved_value", "total_area"})
	rangeLabel := fmt.Sprintf("%s..%s", stats.From.Format(models.DateLayout), stats.To.Format(models.DateLayout))
	_ = writer.Write([]string{
		rangeLabel,
		strconv.Itoa(stats.TotalQuotes),
		stats.TotalValue.StringFixed(2),
		stats.AverageValue.StringFixed(2),
		stats.ApprovedValue.StringFixed(2),
		stats.TotalArea.String(),
	})

	_ = writer.Write([]string{})
	_ = writer.Write([]string{"status", "count"})
	for _, status := range []models.QuoteStatus{models.QuoteStatusPending, models.QuoteStatusApproved, models.QuoteStatusRejected} {
		_ = writer.Write([]string{string(status), strconv.Itoa(stats.ByStatus[status])})
	}

	writer.Flush()
	return writer.Error()
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Millisecond*999), time.UTC)
}
