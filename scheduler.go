package ticktrack

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultPollInterval  = 60 * time.Second
	DefaultPreviewWindow = 5 * time.Minute
)

// Polls a station, returning its next departure (zero if unknown).
type PollFunc func(ctx context.Context, stationID string) (time.Time, error)

// Scheduler polls stations periodically. A station is only polled
// when its next departure is unknown or within PreviewWindow, so
// stations with nothing coming up aren't hammered.
type Scheduler struct {
	Stations      []string
	Period        time.Duration
	PreviewWindow time.Duration
	MaxConcurrent int
	TimeNow       func() time.Time
	Logger        *slog.Logger

	// Optional hooks, called after every poll and every tick.
	OnPoll func(stationID string, elapsed time.Duration, err error)
	OnTick func(polled int, skipped int, elapsed time.Duration)

	poll PollFunc

	nextDeparture map[string]time.Time
	mutex         sync.Mutex
}

func NewScheduler(stations []string, poll PollFunc) *Scheduler {
	return &Scheduler{
		Stations:      stations,
		Period:        DefaultPollInterval,
		PreviewWindow: DefaultPreviewWindow,
		MaxConcurrent: len(stations),
		TimeNow:       time.Now,
		Logger:        slog.Default(),
		poll:          poll,
		nextDeparture: map[string]time.Time{},
	}
}

// Runs a tick immediately, and then once every Period, until ctx is
// done. Ticks never overlap; a slow tick delays the next.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Tick(ctx)

	ticker := time.NewTicker(s.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Polls all stations currently due, concurrently, and waits for them
// to finish. Returns the IDs of the polled stations.
func (s *Scheduler) Tick(ctx context.Context) []string {
	start := time.Now()
	now := s.TimeNow()

	due := []string{}
	for _, station := range s.Stations {
		if s.isDue(station, now) {
			due = append(due, station)
		} else {
			s.Logger.Debug("skipping station", "station", station, "next_departure", s.NextDeparture(station))
		}
	}

	g := errgroup.Group{}
	if s.MaxConcurrent > 0 {
		g.SetLimit(s.MaxConcurrent)
	}

	for _, station := range due {
		station := station
		g.Go(func() error {
			pollStart := time.Now()
			next, err := s.poll(ctx, station)
			if err != nil {
				s.Logger.Error("polling station", "station", station, "err", err)
				next = time.Time{}
			}

			s.mutex.Lock()
			s.nextDeparture[station] = next
			s.mutex.Unlock()

			if s.OnPoll != nil {
				s.OnPoll(station, time.Since(pollStart), err)
			}
			return nil
		})
	}
	g.Wait()

	if s.OnTick != nil {
		s.OnTick(len(due), len(s.Stations)-len(due), time.Since(start))
	}

	return due
}

func (s *Scheduler) isDue(station string, now time.Time) bool {
	next := s.NextDeparture(station)
	if next.IsZero() {
		return true
	}
	return next.Before(now.Add(s.PreviewWindow))
}

// Most recently observed next departure at the station. Zero if
// unknown.
func (s *Scheduler) NextDeparture(station string) time.Time {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.nextDeparture[station]
}

type StationStatus struct {
	StationID     string     `json:"station_id"`
	NextDeparture *time.Time `json:"next_departure"`
}

// Next departure of every configured station, ordered by station ID.
func (s *Scheduler) Statuses() []StationStatus {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	statuses := []StationStatus{}
	for _, station := range s.Stations {
		status := StationStatus{StationID: station}
		if next, found := s.nextDeparture[station]; found && !next.IsZero() {
			status.NextDeparture = &next
		}
		statuses = append(statuses, status)
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].StationID < statuses[j].StationID
	})

	return statuses
}
