package ops

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/breatheroute/raptor/internal/resilience"
	"github.com/breatheroute/raptor/internal/search"
	"github.com/breatheroute/raptor/internal/timetable"
)

// Status values reported by the ops endpoints.
const (
	StatusOK       = "OK"
	StatusDegraded = "DEGRADED"
	StatusNotReady = "NOT_READY"
)

// TimetableSource is the read side of the timetable store.
type TimetableSource interface {
	Get() (*timetable.Timetable, error)
}

// SearchStats exposes cumulative search counters.
type SearchStats interface {
	Totals() search.Totals
}

// BatchStats exposes batch planner counters.
type BatchStats interface {
	MetricsSnapshot() map[string]interface{}
}

// Health is the body of /health and /ready.
type Health struct {
	Status    string             `json:"status"`
	Time      time.Time          `json:"time"`
	Version   string             `json:"version,omitempty"`
	BuildTime string             `json:"build_time,omitempty"`
	Timetable *timetable.Summary `json:"timetable,omitempty"`
	Detail    string             `json:"detail,omitempty"`
}

// Stats is the body of /stats.
type Stats struct {
	Status       string                 `json:"status"`
	Time         time.Time              `json:"time"`
	Search       *search.Totals         `json:"search,omitempty"`
	Batch        map[string]interface{} `json:"batch,omitempty"`
	Dependencies []resilience.Health    `json:"dependencies"`
	Timetable    *timetable.Summary     `json:"timetable,omitempty"`
}

// Problem is an RFC 7807 error body.
type Problem struct {
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	TraceID  string `json:"traceId,omitempty"`
}

// Handler serves the operational endpoints.
type Handler struct {
	version   string
	buildTime string
	timetable TimetableSource
	search    SearchStats
	batch     BatchStats
	registry  *resilience.Registry
	now       func() time.Time
}

// Health handles GET /health. It only reports that the process is serving.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Health{
		Status:    StatusOK,
		Time:      h.now(),
		Version:   h.version,
		BuildTime: h.buildTime,
	})
}

// Ready handles GET /ready. The planner is ready once a timetable is loaded.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	tt, err := h.timetable.Get()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, Health{
			Status: StatusNotReady,
			Time:   h.now(),
			Detail: err.Error(),
		})
		return
	}

	summary := tt.Summary()
	writeJSON(w, http.StatusOK, Health{
		Status:    StatusOK,
		Time:      h.now(),
		Timetable: &summary,
	})
}

// Stats handles GET /stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := Stats{
		Status:       StatusOK,
		Time:         h.now(),
		Dependencies: []resilience.Health{},
	}

	if h.search != nil {
		totals := h.search.Totals()
		stats.Search = &totals
	}
	if h.batch != nil {
		stats.Batch = h.batch.MetricsSnapshot()
	}
	if h.registry != nil {
		stats.Dependencies = h.registry.All()
		for _, dep := range stats.Dependencies {
			if !dep.Healthy() {
				stats.Status = StatusDegraded
			}
		}
	}
	if tt, err := h.timetable.Get(); err == nil {
		summary := tt.Summary()
		stats.Timetable = &summary
	} else {
		stats.Status = StatusNotReady
	}

	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	p := Problem{
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
		TraceID:  GetRequestID(r.Context()),
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(p)
}
