// Package dashboard serves a JSON view of recent metrics, recent log lines
// and the stored snapshots next to the Prometheus endpoint.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"cryptosnap/internal/metrics"
	"cryptosnap/internal/models"
	"cryptosnap/internal/store"
	"cryptosnap/logger"
)

// SnapshotLoader reads the latest snapshot for a timeframe.
type SnapshotLoader interface {
	Load(ctx context.Context, tf models.Timeframe) (*models.MarketSnapshot, error)
}

type Server struct {
	log       *logger.Log
	metrics   *metricHistory
	logs      *logHistory
	handlerID metrics.MetricHandlerID
	snapshots SnapshotLoader
}

// NewServer starts capturing metrics and log lines. history bounds both
// buffers. Close releases the capture.
func NewServer(log *logger.Log, snapshots SnapshotLoader, history int) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	s := &Server{
		log:       log,
		metrics:   newMetricHistory(history),
		logs:      newLogHistory(history),
		snapshots: snapshots,
	}
	s.handlerID = metrics.RegisterMetricHandler(s.metrics.handle)
	log.AddHook(s.logs)
	return s
}

func (s *Server) Close() {
	metrics.UnregisterMetricHandler(s.handlerID)
	s.logs.close()
}

// Routes returns the handlers to mount on the metrics listener.
func (s *Server) Routes() map[string]http.Handler {
	return map[string]http.Handler{
		"GET /api/metrics":        http.HandlerFunc(s.handleMetrics),
		"GET /api/logs":           http.HandlerFunc(s.handleLogs),
		"GET /api/snapshots/{tf}": http.HandlerFunc(s.handleSnapshot),
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	items := s.metrics.snapshot()
	payload := make([]map[string]interface{}, 0, len(items))
	for _, m := range items {
		payload = append(payload, map[string]interface{}{
			"timestamp": m.Timestamp.Format(time.RFC3339Nano),
			"component": m.Component,
			"name":      m.Name,
			"value":     m.Value,
			"type":      m.Type,
			"fields":    m.Fields,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"metrics": payload})
}

func (s *Server) handleLogs(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"logs": s.logs.snapshot()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	tf, err := models.ParseTimeframe(r.PathValue("tf"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if s.snapshots == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no snapshot store"})
		return
	}

	snap, err := s.snapshots.Load(r.Context(), tf)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case err != nil:
		s.log.WithComponent("dashboard").WithError(err).WithFields(logger.Fields{"timeframe": tf}).Warn("snapshot load failed")
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		s.writeJSON(w, http.StatusOK, snap)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithComponent("dashboard").WithError(err).Debug("response write failed")
	}
}
