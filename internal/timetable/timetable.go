// Package timetable provides the in-memory transit data used by the search:
// a builder that validates stops, patterns, trips and transfers, and a loader
// that reads them from PostgreSQL.
package timetable

import (
	"errors"
	"sync/atomic"

	"github.com/breatheroute/raptor/internal/raptor/transit"
)

// Errors returned by the timetable package.
var (
	ErrInvalidTimetable   = errors.New("invalid timetable")
	ErrTimetableNotLoaded = errors.New("timetable not loaded")
)

// Stop is a boarding location.
type Stop struct {
	Index int
	ID    string
	Name  string
}

// Timetable is an immutable transit.Data implementation.
type Timetable struct {
	stops         []Stop
	stopIndex     map[string]int
	routes        []*transit.Route
	routeIndex    map[string]int
	routesByStop  [][]int
	transfersFrom [][]transit.Transfer
	transfersTo   [][]transit.Transfer
	constrained   int
}

var _ transit.Data = (*Timetable)(nil)

// NumberOfStops implements transit.Data.
func (t *Timetable) NumberOfStops() int { return len(t.stops) }

// NumberOfRoutes implements transit.Data.
func (t *Timetable) NumberOfRoutes() int { return len(t.routes) }

// Route implements transit.Data.
func (t *Timetable) Route(index int) *transit.Route { return t.routes[index] }

// RoutesByStop implements transit.Data.
func (t *Timetable) RoutesByStop(stop int) []int { return t.routesByStop[stop] }

// TransfersFrom implements transit.Data.
func (t *Timetable) TransfersFrom(stop int) []transit.Transfer { return t.transfersFrom[stop] }

// TransfersTo implements transit.Data.
func (t *Timetable) TransfersTo(stop int) []transit.Transfer { return t.transfersTo[stop] }

// Stop returns the stop with the given index.
func (t *Timetable) Stop(index int) Stop { return t.stops[index] }

// StopIndex looks up a stop by id.
func (t *Timetable) StopIndex(id string) (int, bool) {
	i, ok := t.stopIndex[id]
	return i, ok
}

// RouteByName looks up a route by name.
func (t *Timetable) RouteByName(name string) (*transit.Route, bool) {
	i, ok := t.routeIndex[name]
	if !ok {
		return nil, false
	}
	return t.routes[i], true
}

// Summary describes the size of a timetable.
type Summary struct {
	Stops                int `json:"stops"`
	Routes               int `json:"routes"`
	Trips                int `json:"trips"`
	Transfers            int `json:"transfers"`
	ConstrainedTransfers int `json:"constrained_transfers"`
}

// Summary returns the size of the timetable.
func (t *Timetable) Summary() Summary {
	s := Summary{
		Stops:                len(t.stops),
		Routes:               len(t.routes),
		ConstrainedTransfers: t.constrained,
	}
	for _, r := range t.routes {
		s.Trips += len(r.Trips)
	}
	for _, txs := range t.transfersFrom {
		s.Transfers += len(txs)
	}
	return s
}

// Store holds the current timetable. It is swapped atomically on reload and
// read concurrently by searches.
type Store struct {
	current atomic.Pointer[Timetable]
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Set replaces the current timetable.
func (s *Store) Set(t *Timetable) {
	s.current.Store(t)
}

// Get returns the current timetable or ErrTimetableNotLoaded.
func (s *Store) Get() (*Timetable, error) {
	t := s.current.Load()
	if t == nil {
		return nil, ErrTimetableNotLoaded
	}
	return t, nil
}

// Loaded reports whether a timetable has been set.
func (s *Store) Loaded() bool {
	return s.current.Load() != nil
}
