package ticktrack

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ticktrack/ticktrack/datalog"
	"github.com/ticktrack/ticktrack/transport"
	"github.com/ticktrack/ticktrack/trias"
)

const UserAgent = "ticktrack-worker"

// Poller asks the endpoint for upcoming departures at a station and
// feeds the results to a TripStore.
type Poller struct {
	Endpoint        string
	RequestorRef    string
	NumberOfResults int
	Transport       transport.Transport
	Trips           *TripStore
	Logger          *slog.Logger
	TimeNow         func() time.Time

	// Raw exchanges are captured here, unless nil.
	Datalog *datalog.Writer
}

func NewPoller(endpoint string, requestorRef string, t transport.Transport, trips *TripStore) *Poller {
	return &Poller{
		Endpoint:        endpoint,
		RequestorRef:    requestorRef,
		NumberOfResults: trias.DefaultNumberOfResults,
		Transport:       t,
		Trips:           trips,
		Logger:          slog.Default(),
		TimeNow:         time.Now,
	}
}

// Polls a single station. Returns the earliest upcoming departure
// found in the response, or the zero time if there is none.
//
// Fails on transport, parse and storage errors. Results processed
// before a storage error are kept.
func (p *Poller) Poll(ctx context.Context, stationID string) (time.Time, error) {
	now := p.TimeNow()

	req := trias.NewStopEventRequest(
		p.RequestorRef,
		stationID,
		trias.Timestamp(now),
		p.NumberOfResults,
		now,
	)

	body, err := req.Bytes()
	if err != nil {
		return time.Time{}, fmt.Errorf("building request: %w", err)
	}

	headers := map[string]string{
		"Content-Type": "application/xml",
		"User-Agent":   UserAgent,
	}

	p.capture(body, headers, req.Payload.Name(), "Request")

	data, err := p.Transport.Post(ctx, p.Endpoint, headers, body)
	if err != nil {
		return time.Time{}, err
	}

	p.capture(data, headers, req.Payload.Name(), "Response")

	resp, err := trias.ParseResponse(data)
	if err != nil {
		return time.Time{}, err
	}

	for _, msg := range resp.ErrorMessages() {
		p.Logger.Warn("endpoint reported error", "station", stationID, "message", msg)
	}

	results := resp.StopEventResults()
	for _, result := range results {
		outcome, _, err := p.Trips.Observe(stationID, result)
		if err != nil {
			return time.Time{}, fmt.Errorf("observing trip %s: %w", result.Service.JourneyRef, err)
		}
		p.Logger.Debug(
			"observed trip",
			"station", stationID,
			"trip", result.Service.JourneyRef,
			"line", result.Service.LineRef,
			"outcome", outcome.String(),
		)
	}

	return EarliestDeparture(results, now), nil
}

func (p *Poller) capture(data []byte, headers map[string]string, payload string, direction string) {
	if p.Datalog == nil {
		return
	}

	err := p.Datalog.Create(data, map[string]any{
		"method":   "POST",
		"endpoint": p.Endpoint,
		"headers":  headers,
	}, "OUT", payload, direction)
	if err != nil {
		p.Logger.Warn("writing datalog", "err", err)
	}
}

// The earliest departure at the monitored station, estimated where
// available, that is not before now. Zero time if there is none.
func EarliestDeparture(results []trias.StopEventResult, now time.Time) time.Time {
	next := time.Time{}
	for i := range results {
		dep := results[i].DepartureTime()
		if dep.IsZero() || dep.Before(now) {
			continue
		}
		if next.IsZero() || dep.Before(next) {
			next = dep
		}
	}
	return next
}
