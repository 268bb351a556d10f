package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticktrack/ticktrack/model"
	"github.com/ticktrack/ticktrack/storage"
)

func TestOpenStorageSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticktrack.db")

	s, err := openStorage(path)
	require.NoError(t, err)
	require.NoError(t, s.WriteTrip(&model.MonitoredTrip{OperationDay: "2024-01-01", TripID: "j1"}))
	require.NoError(t, s.Close())

	s, err = openStorage(path)
	require.NoError(t, err)
	defer s.Close()

	trip, err := s.GetTrip("2024-01-01", "j1")
	require.NoError(t, err)
	assert.NotNil(t, trip)
}

func TestExportTrips(t *testing.T) {
	s := storage.NewMemoryStorage()
	require.NoError(t, s.WriteTrip(&model.MonitoredTrip{
		OperationDay:              "2024-01-01",
		TripID:                    "j1",
		LineID:                    "U1",
		StartTime:                 "2024-01-01T10:00:00+00:00",
		RealtimeNumCancelledStops: 2,
	}))
	require.NoError(t, s.WriteTrip(&model.MonitoredTrip{
		OperationDay: "2024-01-02",
		TripID:       "j2",
		LineID:       "U2",
	}))

	buf := &bytes.Buffer{}
	require.NoError(t, exportTrips(s, storage.ListTripsFilter{OperationDay: "2024-01-01"}, buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, 2, len(lines))
	assert.True(t, strings.HasPrefix(lines[0], "operation_day,trip_id,line_id,line_name,"))
	assert.True(t, strings.HasPrefix(lines[1], "2024-01-01,j1,U1,"))
	assert.Contains(t, lines[1], ",2,0")
}

func TestFormatDeparture(t *testing.T) {
	assert.Equal(t, "--:--", formatDeparture(time.Time{}))

	dep := time.Date(2024, 3, 1, 9, 7, 0, 0, time.Local)
	assert.Equal(t, "09:07", formatDeparture(dep))
}
