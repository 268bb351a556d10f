package publisher

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ticktrack/ticktrack/model"
)

// Anything trip events can be published on. Satisfied by *nats.Conn.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Upper bound on how long Close waits for pending messages to flush.
const DrainTimeout = 5 * time.Second

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	NATSSetConnected(connected bool)
}

// Publishes created and escalated trips on
// <prefix>.<event>.<line>.
type NATSPublisher struct {
	Prefix string
	Logger *slog.Logger

	conn    Conn
	closed  chan struct{}
	metrics PublisherMetrics
}

type TripMessage struct {
	Event string              `json:"event"`
	Trip  model.MonitoredTrip `json:"trip"`
}

func NewNATSPublisher(url string, prefix string, logger *slog.Logger, m PublisherMetrics) (*NATSPublisher, error) {
	closed := make(chan struct{})
	var once sync.Once

	nc, err := nats.Connect(url,
		nats.Name("ticktrack"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			logger.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Info("nats closed")
			once.Do(func() { close(closed) })
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	if m != nil {
		m.NATSSetConnected(true)
	}

	p := NewPublisher(nc, prefix, logger, m)
	p.closed = closed
	return p, nil
}

// Creates a publisher on top of an existing connection.
func NewPublisher(conn Conn, prefix string, logger *slog.Logger, m PublisherMetrics) *NATSPublisher {
	return &NATSPublisher{
		Prefix:  prefix,
		Logger:  logger,
		conn:    conn,
		metrics: m,
	}
}

// Drains the connection, which closes it once pending messages are
// flushed, and waits for that to happen.
func (p *NATSPublisher) Close() {
	d, ok := p.conn.(interface{ Drain() error })
	if !ok {
		return
	}

	err := d.Drain()
	if err != nil {
		p.Logger.Warn("nats drain failed", "error", err)
		return
	}

	if p.closed == nil {
		return
	}
	select {
	case <-p.closed:
	case <-time.After(DrainTimeout):
		p.Logger.Warn("nats drain timed out")
	}
}

func (p *NATSPublisher) PublishTrip(event string, trip model.MonitoredTrip) error {
	subject := fmt.Sprintf("%s.%s.%s", p.Prefix, subjectToken(event), subjectToken(trip.LineID))

	b, err := json.Marshal(TripMessage{Event: event, Trip: trip})
	if err != nil {
		return fmt.Errorf("marshalling trip: %w", err)
	}

	p.Logger.Debug("nats publish", "subject", subject, "trip", trip.TripID)

	err = p.conn.Publish(subject, b)
	if p.metrics != nil {
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}

	return nil
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
