package worker

import (
	"errors"

	"github.com/breatheroute/raptor/internal/raptor/path"
	"github.com/breatheroute/raptor/internal/raptor/transit"
	"github.com/breatheroute/raptor/internal/search"
)

// PlanMessage is a plan job received over Pub/Sub.
type PlanMessage struct {
	JobType  string           `json:"job_type"`
	Request  *search.Request  `json:"request,omitempty"`
	Requests []search.Request `json:"requests,omitempty"`
}

// Result statuses.
const (
	StatusOK      = "ok"
	StatusEmpty   = "empty"
	StatusInvalid = "invalid"
	StatusTimeout = "timeout"
	StatusFailed  = "failed"
)

// PlanResult is the published outcome of one plan request.
type PlanResult struct {
	RequestID   string        `json:"request_id"`
	Status      string        `json:"status"`
	Error       string        `json:"error,omitempty"`
	Itineraries []Itinerary   `json:"itineraries,omitempty"`
	Stats       *search.Stats `json:"stats,omitempty"`
}

// Itinerary is one path with stop ids and clock times.
type Itinerary struct {
	Departure string      `json:"departure"`
	Arrival   string      `json:"arrival"`
	Duration  int         `json:"duration"`
	Transfers int         `json:"transfers"`
	Cost      int         `json:"cost"`
	Legs      []LegResult `json:"legs"`
}

// LegResult is one leg of an itinerary. From is empty for the access leg and
// To for the egress leg.
type LegResult struct {
	Mode      string `json:"mode"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Departure string `json:"departure"`
	Arrival   string `json:"arrival"`
	Route     string `json:"route,omitempty"`
	Trip      string `json:"trip,omitempty"`
}

// NewPlanResult converts a search response.
func NewPlanResult(resp *search.Response) PlanResult {
	stats := resp.Stats
	res := PlanResult{RequestID: resp.RequestID, Status: StatusOK, Stats: &stats}
	if len(resp.Paths) == 0 {
		res.Status = StatusEmpty
		return res
	}

	stopID := func(i int) string {
		if i < 0 || resp.Timetable == nil {
			return ""
		}
		return resp.Timetable.Stop(i).ID
	}
	for _, p := range resp.Paths {
		res.Itineraries = append(res.Itineraries, newItinerary(p, stopID))
	}
	return res
}

func newItinerary(p *path.Path, stopID func(int) string) Itinerary {
	it := Itinerary{
		Departure: transit.FormatTime(p.StartTime),
		Arrival:   transit.FormatTime(p.EndTime),
		Duration:  p.Duration(),
		Transfers: p.Transfers,
		Cost:      transit.FromCost(p.C1),
		Legs:      make([]LegResult, 0, len(p.Legs)),
	}
	for _, l := range p.Legs {
		lr := LegResult{
			Mode:      l.Kind.String(),
			From:      stopID(l.FromStop),
			To:        stopID(l.ToStop),
			Departure: transit.FormatTime(l.FromTime),
			Arrival:   transit.FormatTime(l.ToTime),
		}
		if l.Kind == path.TransitLeg {
			lr.Route = l.Route.Name
			lr.Trip = l.Trip.ID
		}
		it.Legs = append(it.Legs, lr)
	}
	return it
}

// NewErrorResult describes a failed request.
func NewErrorResult(requestID string, err error) PlanResult {
	status := StatusFailed
	switch {
	case errors.Is(err, search.ErrInvalidRequest):
		status = StatusInvalid
	case errors.Is(err, search.ErrSearchTimeout):
		status = StatusTimeout
	}
	return PlanResult{RequestID: requestID, Status: status, Error: err.Error()}
}

// answered reports whether a failed request gets a result instead of being
// redelivered. Retrying would fail the same way for these errors.
func answered(err error) bool {
	return errors.Is(err, search.ErrInvalidRequest) ||
		errors.Is(err, search.ErrSearchTimeout) ||
		errors.Is(err, search.ErrNoTransitData)
}

// resultFor builds the result of one routed request.
func resultFor(req search.Request, resp *search.Response, err error) PlanResult {
	if err == nil {
		return NewPlanResult(resp)
	}
	id := req.RequestID
	var serr *search.Error
	if errors.As(err, &serr) && serr.RequestID != "" {
		id = serr.RequestID
	}
	return NewErrorResult(id, err)
}
