package storage

import (
	"github.com/ticktrack/ticktrack/model"
)

type Storage interface {
	// Retrieves the trip with the given operation day and trip
	// ID. Returns nil, and no error, if there is none.
	GetTrip(operationDay string, tripID string) (*model.MonitoredTrip, error)

	// Writes a MonitoredTrip record. If a record with the same
	// operation day and trip ID exists, it is updated.
	WriteTrip(trip *model.MonitoredTrip) error

	// Retrieves all trips matching the given filter, ordered by
	// operation day, start time and trip ID.
	ListTrips(filter ListTripsFilter) ([]*model.MonitoredTrip, error)

	Close() error
}

type ListTripsFilter struct {
	// If set, only include trips on the given operation day.
	OperationDay string

	// If set, only include trips of the given line.
	LineID string

	// If set, only include trips with these IDs.
	TripIDs []string
}

func (f ListTripsFilter) matches(trip *model.MonitoredTrip) bool {
	if f.OperationDay != "" && trip.OperationDay != f.OperationDay {
		return false
	}
	if f.LineID != "" && trip.LineID != f.LineID {
		return false
	}
	if len(f.TripIDs) > 0 {
		found := false
		for _, id := range f.TripIDs {
			if id == trip.TripID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
