package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/ticktrack/ticktrack/model"
)

type PSQLStorage struct {
	db *sql.DB
}

const psqlCreateTables = `
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
    realtime_first_appeared TIMESTAMPTZ,
    realtime_cancelled BOOLEAN NOT NULL DEFAULT FALSE,
    realtime_num_cancelled_stops INTEGER NOT NULL DEFAULT 0,
    realtime_num_added_stops INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (operation_day, trip_id)
);`

// Creates a new Postgres Storage using the provided connection string.
//
// If clearDB is true, the database will be cleared on startup. You
// probably only want this for testing.
func NewPSQLStorage(connStr string, clearDB bool) (*PSQLStorage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	s, err := newPSQLStorage(db, clearDB)
	if err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func newPSQLStorage(db *sql.DB, clearDB bool) (*PSQLStorage, error) {
	if clearDB {
		_, err := db.Exec(`DROP TABLE IF EXISTS monitored_trip;`)
		if err != nil {
			return nil, fmt.Errorf("clearing db: %w", err)
		}
	}

	_, err := db.Exec(psqlCreateTables)
	if err != nil {
		return nil, fmt.Errorf("creating monitored_trip table: %w", err)
	}

	return &PSQLStorage{
		db: db,
	}, nil
}

func (s *PSQLStorage) Close() error {
	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("failed to close db: %w", err)
	}
	return nil
}

const psqlSelectTrips = `
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

func (s *PSQLStorage) GetTrip(operationDay string, tripID string) (*model.MonitoredTrip, error) {
	rows, err := s.db.Query(
		psqlSelectTrips+" WHERE operation_day = $1 AND trip_id = $2",
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

func (s *PSQLStorage) WriteTrip(trip *model.MonitoredTrip) error {
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
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (operation_day, trip_id) DO UPDATE SET
    line_id = EXCLUDED.line_id,
    line_name = EXCLUDED.line_name,
    origin_stop_id = EXCLUDED.origin_stop_id,
    origin_name = EXCLUDED.origin_name,
    destination_stop_id = EXCLUDED.destination_stop_id,
    destination_name = EXCLUDED.destination_name,
    start_time = EXCLUDED.start_time,
    end_time = EXCLUDED.end_time,
    realtime_ref_station = EXCLUDED.realtime_ref_station,
    realtime_first_appeared = EXCLUDED.realtime_first_appeared,
    realtime_cancelled = EXCLUDED.realtime_cancelled,
    realtime_num_cancelled_stops = EXCLUDED.realtime_num_cancelled_stops,
    realtime_num_added_stops = EXCLUDED.realtime_num_added_stops
`, tripValues(trip)...)
	if err != nil {
		return fmt.Errorf("writing trip: %w", err)
	}
	return nil
}

func (s *PSQLStorage) ListTrips(filter ListTripsFilter) ([]*model.MonitoredTrip, error) {
	query := psqlSelectTrips

	conditions := []string{}
	params := []interface{}{}
	if filter.OperationDay != "" {
		params = append(params, filter.OperationDay)
		conditions = append(conditions, fmt.Sprintf("operation_day = $%d", len(params)))
	}
	if filter.LineID != "" {
		params = append(params, filter.LineID)
		conditions = append(conditions, fmt.Sprintf("line_id = $%d", len(params)))
	}
	if len(filter.TripIDs) > 0 {
		params = append(params, pq.Array(filter.TripIDs))
		conditions = append(conditions, fmt.Sprintf("trip_id = ANY($%d)", len(params)))
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
