package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticktrack/ticktrack"
	"github.com/ticktrack/ticktrack/model"
	"github.com/ticktrack/ticktrack/storage"
)

type fakeStations []ticktrack.StationStatus

func (f fakeStations) Statuses() []ticktrack.StationStatus { return f }

type brokenStorage struct {
	storage.Storage
}

func (brokenStorage) GetTrip(string, string) (*model.MonitoredTrip, error) {
	return nil, errors.New("broken")
}

func (brokenStorage) ListTrips(storage.ListTripsFilter) ([]*model.MonitoredTrip, error) {
	return nil, errors.New("broken")
}

func routerFixture(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	s := storage.NewMemoryStorage()
	for _, trip := range []model.MonitoredTrip{
		{OperationDay: "2024-01-01", TripID: "j1", LineID: "U1", StartTime: "2024-01-01T10:00:00+00:00"},
		{OperationDay: "2024-01-01", TripID: "j2", LineID: "U2", StartTime: "2024-01-01T11:00:00+00:00", RealtimeCancelled: true},
		{OperationDay: "2024-01-02", TripID: "j1", LineID: "U1", StartTime: "2024-01-02T10:00:00+00:00"},
	} {
		require.NoError(t, s.WriteTrip(&trip))
	}

	next := time.Date(2024, 1, 1, 10, 3, 0, 0, time.UTC)
	stations := fakeStations{
		{StationID: "de:1", NextDeparture: &next},
		{StationID: "de:2"},
	}

	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ticktrack_stations 2\n"))
	})

	return NewRouter(s, stations, metrics)
}

func get(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := get(t, routerFixture(t), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestListTrips(t *testing.T) {
	r := routerFixture(t)

	for _, tc := range []struct {
		Query    string
		Expected []string
	}{
		{"", []string{"2024-01-01/j1", "2024-01-01/j2", "2024-01-02/j1"}},
		{"?operation_day=2024-01-01", []string{"2024-01-01/j1", "2024-01-01/j2"}},
		{"?line_id=U1", []string{"2024-01-01/j1", "2024-01-02/j1"}},
		{"?operation_day=2024-01-02&line_id=U2", []string{}},
	} {
		t.Run(tc.Query, func(t *testing.T) {
			w := get(t, r, "/trips"+tc.Query)
			require.Equal(t, http.StatusOK, w.Code)

			trips := []model.MonitoredTrip{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trips))

			keys := []string{}
			for _, trip := range trips {
				keys = append(keys, trip.OperationDay+"/"+trip.TripID)
			}
			assert.Equal(t, tc.Expected, keys)
		})
	}
}

func TestGetTrip(t *testing.T) {
	r := routerFixture(t)

	w := get(t, r, "/trips/2024-01-01/j2")
	require.Equal(t, http.StatusOK, w.Code)

	trip := model.MonitoredTrip{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trip))
	assert.Equal(t, "U2", trip.LineID)
	assert.True(t, trip.RealtimeCancelled)
	assert.Nil(t, trip.RealtimeFirstAppeared)

	w = get(t, r, "/trips/2024-01-03/j2")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStations(t *testing.T) {
	w := get(t, routerFixture(t), "/stations")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[
		{"station_id": "de:1", "next_departure": "2024-01-01T10:03:00Z"},
		{"station_id": "de:2", "next_departure": null}
	]`, w.Body.String())
}

func TestMetrics(t *testing.T) {
	w := get(t, routerFixture(t), "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ticktrack_stations 2\n", w.Body.String())

	// No metrics handler, no route
	gin.SetMode(gin.TestMode)
	r := NewRouter(storage.NewMemoryStorage(), fakeStations{}, nil)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/metrics").Code)
}

func TestStorageFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(brokenStorage{}, fakeStations{}, nil)

	assert.Equal(t, http.StatusInternalServerError, get(t, r, "/trips").Code)
	assert.Equal(t, http.StatusInternalServerError, get(t, r, "/trips/2024-01-01/j1").Code)
}
