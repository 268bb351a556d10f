package storage

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ticktrack/ticktrack/model"
)

type SQLiteConfig struct {
	OnDisk bool
	Path   string
}

type SQLiteStorage struct {
	SQLiteConfig

	db *sql.DB
}

func NewSQLiteStorage(cfg ...SQLiteConfig) (*SQLiteStorage, error) {
	onDisk := false
	path := ""
	if len(cfg) > 0 {
		onDisk = cfg[0].OnDisk
		path = cfg[0].Path
	}

	sourceName := ":memory:"
	if onDisk {
		if path == "" {
			return nil, fmt.Errorf("path is required for on disk storage")
		}
		// Readers (export, status API) may run alongside the
		// observer, so wait for locks rather than fail.
		sourceName = path + "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Each connection to :memory: gets its own database.
	if !onDisk {
		db.SetMaxOpenConns(1)
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS monitored_trip (
    operation_day TEXT NOT NULL,
    trip_id TEXT NOT NULL,
    line_id TEXT NOT NULL,
    line_name TEXT NOT NULL,
    origin_stop_id TEXT NOT NULL,
    origin_name TEXT NOT NULL,
    destination_stop_id TEXT NOT NULL,
    destination_name TEXT NOT NULL,
    start_time TEXT NOT NULL,
    end_time TEXT NOT NULL,
    realtime_ref_station TEXT NOT NULL,
    realtime_first_appeared TIMESTAMP,
    realtime_cancelled BOOLEAN NOT NULL DEFAULT 0,
    realtime_num_cancelled_stops INTEGER NOT NULL DEFAULT 0,
    realtime_num_added_stops INTEGER NOT NULL DEFAULT 0,
PRIMARY KEY (operation_day, trip_id)
);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating monitored_trip table: %w", err)
	}

	return &SQLiteStorage{
		SQLiteConfig: SQLiteConfig{
			OnDisk: onDisk,
			Path:   path,
		},
		db: db,
	}, nil
}

const sqliteSelectTrips = `
SELECT
    operation_day,
    trip_id,
    line_id,
    line_name,
    origin_stop_id,
    origin_name,
    destination_stop_id,
    destination_name,
    start_time,
    end_time,
    realtime_ref_station,
    realtime_first_appeared,
    realtime_cancelled,
    realtime_num_cancelled_stops,
    realtime_num_added_stops
FROM monitored_trip`

func (s *SQLiteStorage) GetTrip(operationDay string, tripID string) (*model.MonitoredTrip, error) {
	rows, err := s.db.Query(
		sqliteSelectTrips+" WHERE operation_day = ? AND trip_id = ?",
		operationDay,
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying trip: %w", err)
	}

	trips, err := scanTrips(rows)
	if err != nil {
		return nil, err
	}
	if len(trips) == 0 {
		return nil, nil
	}

	return trips[0], nil
}

func (s *SQLiteStorage) WriteTrip(trip *model.MonitoredTrip) error {
	_, err := s.db.Exec(`
INSERT INTO monitored_trip (
    operation_day,
    trip_id,
    line_id,
    line_name,
    origin_stop_id,
    origin_name,
    destination_stop_id,
    destination_name,
    start_time,
    end_time,
    realtime_ref_station,
    realtime_first_appeared,
    realtime_cancelled,
    realtime_num_cancelled_stops,
    realtime_num_added_stops
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (operation_day, trip_id) DO UPDATE SET
    line_id = excluded.line_id,
    line_name = excluded.line_name,
    origin_stop_id = excluded.origin_stop_id,
    origin_name = excluded.origin_name,
    destination_stop_id = excluded.destination_stop_id,
    destination_name = excluded.destination_name,
    start_time = excluded.start_time,
    end_time = excluded.end_time,
    realtime_ref_station = excluded.realtime_ref_station,
    realtime_first_appeared = excluded.realtime_first_appeared,
    realtime_cancelled = excluded.realtime_cancelled,
    realtime_num_cancelled_stops = excluded.realtime_num_cancelled_stops,
    realtime_num_added_stops = excluded.realtime_num_added_stops
`, tripValues(trip)...)
	if err != nil {
		return fmt.Errorf("writing trip: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ListTrips(filter ListTripsFilter) ([]*model.MonitoredTrip, error) {
	query := sqliteSelectTrips

	conditions := []string{}
	params := []interface{}{}
	if filter.OperationDay != "" {
		conditions = append(conditions, "operation_day = ?")
		params = append(params, filter.OperationDay)
	}
	if filter.LineID != "" {
		conditions = append(conditions, "line_id = ?")
		params = append(params, filter.LineID)
	}
	if len(filter.TripIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf(
			"trip_id IN (%s)",
			strings.TrimSuffix(strings.Repeat("?, ", len(filter.TripIDs)), ", "),
		))
		for _, id := range filter.TripIDs {
			params = append(params, id)
		}
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY operation_day, start_time, trip_id"

	rows, err := s.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("listing trips: %w", err)
	}

	return scanTrips(rows)
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Column values of a trip, in the order used by the INSERT
// statements.
func tripValues(trip *model.MonitoredTrip) []interface{} {
	var firstAppeared sql.NullTime
	if trip.RealtimeFirstAppeared != nil {
		firstAppeared = sql.NullTime{Time: trip.RealtimeFirstAppeared.UTC(), Valid: true}
	}

	return []interface{}{
		trip.OperationDay,
		trip.TripID,
		trip.LineID,
		trip.LineName,
		trip.OriginStopID,
		trip.OriginName,
		trip.DestinationStopID,
		trip.DestinationName,
		trip.StartTime,
		trip.EndTime,
		trip.RealtimeRefStation,
		firstAppeared,
		trip.RealtimeCancelled,
		trip.RealtimeNumCancelledStops,
		trip.RealtimeNumAddedStops,
	}
}

// Scans and closes rows selected with the column order of the
// SELECT statements.
func scanTrips(rows *sql.Rows) ([]*model.MonitoredTrip, error) {
	defer rows.Close()

	trips := []*model.MonitoredTrip{}
	for rows.Next() {
		var trip model.MonitoredTrip
		var firstAppeared sql.NullTime
		err := rows.Scan(
			&trip.OperationDay,
			&trip.TripID,
			&trip.LineID,
			&trip.LineName,
			&trip.OriginStopID,
			&trip.OriginName,
			&trip.DestinationStopID,
			&trip.DestinationName,
			&trip.StartTime,
			&trip.EndTime,
			&trip.RealtimeRefStation,
			&firstAppeared,
			&trip.RealtimeCancelled,
			&trip.RealtimeNumCancelledStops,
			&trip.RealtimeNumAddedStops,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning trip: %w", err)
		}
		if firstAppeared.Valid {
			ts := firstAppeared.Time.UTC()
			trip.RealtimeFirstAppeared = &ts
		}
		trips = append(trips, &trip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trips: %w", err)
	}

	return trips, nil
}
