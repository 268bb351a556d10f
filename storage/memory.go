package storage

import (
	"sort"
	"sync"

	"github.com/ticktrack/ticktrack/model"
)

// In memory implementation of Storage below

type memoryTripKey struct {
	OperationDay string
	TripID       string
}

type MemoryStorage struct {
	Trips map[memoryTripKey]model.MonitoredTrip

	mutex sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		Trips: map[memoryTripKey]model.MonitoredTrip{},
	}
}

func (s *MemoryStorage) GetTrip(operationDay string, tripID string) (*model.MonitoredTrip, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	trip, found := s.Trips[memoryTripKey{operationDay, tripID}]
	if !found {
		return nil, nil
	}
	return copyTrip(trip), nil
}

func (s *MemoryStorage) WriteTrip(trip *model.MonitoredTrip) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.Trips[memoryTripKey{trip.OperationDay, trip.TripID}] = *copyTrip(*trip)
	return nil
}

func (s *MemoryStorage) ListTrips(filter ListTripsFilter) ([]*model.MonitoredTrip, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	trips := []*model.MonitoredTrip{}
	for _, trip := range s.Trips {
		if !filter.matches(&trip) {
			continue
		}
		trips = append(trips, copyTrip(trip))
	}

	sort.Slice(trips, func(i, j int) bool {
		if trips[i].OperationDay != trips[j].OperationDay {
			return trips[i].OperationDay < trips[j].OperationDay
		}
		if trips[i].StartTime != trips[j].StartTime {
			return trips[i].StartTime < trips[j].StartTime
		}
		return trips[i].TripID < trips[j].TripID
	})

	return trips, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}

// Records are stored by value, so callers can't mutate them behind
// the storage's back. The timestamp pointer needs its own copy.
func copyTrip(trip model.MonitoredTrip) *model.MonitoredTrip {
	if trip.RealtimeFirstAppeared != nil {
		ts := *trip.RealtimeFirstAppeared
		trip.RealtimeFirstAppeared = &ts
	}
	return &trip
}
