package ticktrack

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ticktrack/ticktrack/model"
	"github.com/ticktrack/ticktrack/storage"
	"github.com/ticktrack/ticktrack/trias"
)

// What came of observing a single stop event result.
type Outcome int

const (
	// Line not admitted by the line filter.
	OutcomeFiltered Outcome = iota

	// Result lacks operating day or trip ID, so it can't be
	// identified.
	OutcomeIgnored

	OutcomeCreated
	OutcomeUpdated
	OutcomeUnchanged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFiltered:
		return "filtered"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeUnchanged:
		return "unchanged"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Notified after a trip has been created or updated. Receives a copy
// of the trip as persisted.
type TripListener func(outcome Outcome, trip model.MonitoredTrip)

// TripStore turns stop event results into MonitoredTrip records, one
// per operating day and trip ID.
type TripStore struct {
	TimeNow   func() time.Time
	Listeners []TripListener

	storage storage.Storage
	lines   []string

	// Held from resolving a trip until it's been persisted.
	mutex sync.Mutex
}

// Creates a TripStore on top of the given storage. If lines is
// non-empty, only results with a line ID starting with one of its
// entries are processed.
func NewTripStore(s storage.Storage, lines []string) *TripStore {
	return &TripStore{
		TimeNow: time.Now,
		storage: s,
		lines:   lines,
	}
}

// Reports whether the line filter admits the given line ID.
func (s *TripStore) Allows(lineID string) bool {
	if len(s.lines) == 0 {
		return true
	}
	for _, prefix := range s.lines {
		if strings.HasPrefix(lineID, prefix) {
			return true
		}
	}
	return false
}

// Retrieves the trip with the given operation day and trip ID, or nil
// if it hasn't been seen yet.
func (s *TripStore) Resolve(operationDay string, tripID string) (*model.MonitoredTrip, error) {
	trip, err := s.storage.GetTrip(operationDay, tripID)
	if err != nil {
		return nil, fmt.Errorf("getting trip: %w", err)
	}
	return trip, nil
}

// Records a stop event result observed at the given station. New
// trips are created; known trips only ever escalate their realtime
// fields.
func (s *TripStore) Observe(stationID string, result trias.StopEventResult) (Outcome, *model.MonitoredTrip, error) {
	if !s.Allows(result.Service.LineRef) {
		return OutcomeFiltered, nil, nil
	}

	if result.Service.OperatingDayRef == "" || result.Service.JourneyRef == "" {
		return OutcomeIgnored, nil, nil
	}

	outcome, trip, err := s.apply(stationID, result)
	if err != nil {
		return outcome, nil, err
	}

	if outcome == OutcomeCreated || outcome == OutcomeUpdated {
		for _, listener := range s.Listeners {
			listener(outcome, *trip)
		}
	}

	return outcome, trip, nil
}

func (s *TripStore) apply(stationID string, result trias.StopEventResult) (Outcome, *model.MonitoredTrip, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.TimeNow()
	metrics := ComputeMetrics(result)

	trip, err := s.Resolve(result.Service.OperatingDayRef, result.Service.JourneyRef)
	if err != nil {
		return OutcomeUnchanged, nil, err
	}

	if trip == nil {
		trip = newTrip(stationID, result)
		if result.HasRealtime() {
			trip.MarkRealtimeAppeared(now)
		}
		trip.Ratchet(metrics)

		err = s.storage.WriteTrip(trip)
		if err != nil {
			return OutcomeCreated, nil, fmt.Errorf("writing trip: %w", err)
		}
		return OutcomeCreated, trip, nil
	}

	changed := false
	if result.HasRealtime() && trip.MarkRealtimeAppeared(now) {
		changed = true
	}
	if trip.Ratchet(metrics) {
		changed = true
	}

	if !changed {
		return OutcomeUnchanged, trip, nil
	}

	err = s.storage.WriteTrip(trip)
	if err != nil {
		return OutcomeUpdated, nil, fmt.Errorf("writing trip: %w", err)
	}

	return OutcomeUpdated, trip, nil
}

// Static fields of a trip, as first seen at stationID.
func newTrip(stationID string, result trias.StopEventResult) *model.MonitoredTrip {
	svc := result.Service

	trip := &model.MonitoredTrip{
		OperationDay:       svc.OperatingDayRef,
		TripID:             svc.JourneyRef,
		LineID:             svc.LineRef,
		LineName:           svc.PublishedLineName,
		OriginStopID:       svc.OriginStopPointRef,
		OriginName:         svc.OriginText,
		DestinationStopID:  svc.DestinationStopPointRef,
		DestinationName:    svc.DestinationText,
		RealtimeRefStation: stationID,
	}

	if len(result.PreviousCalls) > 0 {
		trip.StartTime = result.PreviousCalls[0].TimetabledDeparture
	} else if result.ThisCall != nil {
		trip.StartTime = result.ThisCall.TimetabledDeparture
	}

	if len(result.OnwardCalls) > 0 {
		trip.EndTime = result.OnwardCalls[len(result.OnwardCalls)-1].TimetabledArrival
	} else if result.ThisCall != nil {
		trip.EndTime = result.ThisCall.TimetabledArrival
		if trip.EndTime == "" {
			trip.EndTime = result.ThisCall.TimetabledDeparture
		}
	}

	trip.StartTime = explicitOffset(trip.StartTime)
	trip.EndTime = explicitOffset(trip.EndTime)

	return trip
}

// Rewrites a trailing Z as +00:00.
func explicitOffset(ts string) string {
	if strings.HasSuffix(ts, "Z") {
		return strings.TrimSuffix(ts, "Z") + "+00:00"
	}
	return ts
}
