package model

import (
	"time"
)

// Holds all external facing types and constants.

// A scheduled trip occurrence observed at one of the monitored
// stations. Unique per (OperationDay, TripID).
type MonitoredTrip struct {
	OperationDay      string `csv:"operation_day" json:"operation_day"`
	TripID            string `csv:"trip_id" json:"trip_id"`
	LineID            string `csv:"line_id" json:"line_id"`
	LineName          string `csv:"line_name" json:"line_name"`
	OriginStopID      string `csv:"origin_stop_id" json:"origin_stop_id"`
	OriginName        string `csv:"origin_name" json:"origin_name"`
	DestinationStopID string `csv:"destination_stop_id" json:"destination_stop_id"`
	DestinationName   string `csv:"destination_name" json:"destination_name"`

	// ISO-8601 with an explicit offset, e.g. 2024-01-01T10:00:00+00:00
	StartTime string `csv:"start_time" json:"start_time"`
	EndTime   string `csv:"end_time" json:"end_time"`

	// Station at which the trip was first observed.
	RealtimeRefStation string `csv:"realtime_ref_station" json:"realtime_ref_station"`

	// Set once, the first time an estimated departure shows up
	// at the monitored station. Never reset.
	RealtimeFirstAppeared *time.Time `csv:"realtime_first_appeared" json:"realtime_first_appeared"`

	RealtimeCancelled         bool `csv:"realtime_cancelled" json:"realtime_cancelled"`
	RealtimeNumCancelledStops int  `csv:"realtime_num_cancelled_stops" json:"realtime_num_cancelled_stops"`
	RealtimeNumAddedStops     int  `csv:"realtime_num_added_stops" json:"realtime_num_added_stops"`
}

// Irregularities derived from a single stop event result.
type RealtimeMetrics struct {
	Cancelled         bool
	NumCancelledStops int
	NumAddedStops     int
}

// Metrics as currently stored on the trip.
func (t *MonitoredTrip) Metrics() RealtimeMetrics {
	return RealtimeMetrics{
		Cancelled:         t.RealtimeCancelled,
		NumCancelledStops: t.RealtimeNumCancelledStops,
		NumAddedStops:     t.RealtimeNumAddedStops,
	}
}

// Raises each realtime field of the trip to the corresponding
// value in m, if and only if that value is strictly greater.
// Fields that would decrease are left alone. Returns true if
// anything changed.
func (t *MonitoredTrip) Ratchet(m RealtimeMetrics) bool {
	changed := false

	if m.Cancelled && !t.RealtimeCancelled {
		t.RealtimeCancelled = true
		changed = true
	}
	if m.NumCancelledStops > t.RealtimeNumCancelledStops {
		t.RealtimeNumCancelledStops = m.NumCancelledStops
		changed = true
	}
	if m.NumAddedStops > t.RealtimeNumAddedStops {
		t.RealtimeNumAddedStops = m.NumAddedStops
		changed = true
	}

	return changed
}

// Records the first appearance of realtime data. Has no effect if
// already set.
func (t *MonitoredTrip) MarkRealtimeAppeared(when time.Time) bool {
	if t.RealtimeFirstAppeared != nil {
		return false
	}
	ts := when.UTC().Truncate(time.Second)
	t.RealtimeFirstAppeared = &ts
	return true
}
