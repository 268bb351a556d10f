package publisher

import (
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticktrack/ticktrack/model"
)

type message struct {
	Subject string
	Data    []byte
}

type fakeConn struct {
	Messages []message
	Err      error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.Err != nil {
		return f.Err
	}
	f.Messages = append(f.Messages, message{subject, data})
	return nil
}

// Closes once drained, like *nats.Conn.
type drainingConn struct {
	fakeConn
	Drained int
	Closed  int
	closed  chan struct{}
}

func (d *drainingConn) Drain() error {
	d.Drained++
	go func() { close(d.closed) }()
	return nil
}

func (d *drainingConn) Close() { d.Closed++ }

type fakeMetrics struct {
	Published, Errs int
}

func (f *fakeMetrics) NATSPublishedInc() { f.Published++ }
func (f *fakeMetrics) NATSPublishErrInc() { f.Errs++ }
func (f *fakeMetrics) NATSSetConnected(bool) {}

func TestPublishTrip(t *testing.T) {
	conn := &fakeConn{}
	m := &fakeMetrics{}
	p := NewPublisher(conn, "ticktrack.trips", slog.Default(), m)

	trip := model.MonitoredTrip{
		OperationDay:              "2024-01-01",
		TripID:                    "kvv:21001:E:R:j24:1",
		LineID:                    "kvv:21001:E:R",
		RealtimeNumCancelledStops: 2,
	}
	require.NoError(t, p.PublishTrip("updated", trip))

	require.Equal(t, 1, len(conn.Messages))
	assert.Equal(t, "ticktrack.trips.updated.kvv:21001:E:R", conn.Messages[0].Subject)

	decoded := TripMessage{}
	require.NoError(t, json.Unmarshal(conn.Messages[0].Data, &decoded))
	assert.Equal(t, "updated", decoded.Event)
	assert.Equal(t, trip, decoded.Trip)

	assert.Equal(t, 1, m.Published)
	assert.Equal(t, 0, m.Errs)
}

func TestPublishTripSubjectTokens(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "x", slog.Default(), nil)

	require.NoError(t, p.PublishTrip("created", model.MonitoredTrip{LineID: "S 5.1"}))
	require.NoError(t, p.PublishTrip("created", model.MonitoredTrip{}))

	assert.Equal(t, "x.created.S_5_1", conn.Messages[0].Subject)
	assert.Equal(t, "x.created._", conn.Messages[1].Subject)
}

func TestPublishTripFailure(t *testing.T) {
	conn := &fakeConn{Err: errors.New("nats: connection closed")}
	m := &fakeMetrics{}
	p := NewPublisher(conn, "x", slog.Default(), m)

	err := p.PublishTrip("created", model.MonitoredTrip{LineID: "U1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, conn.Err)
	assert.Equal(t, 0, m.Published)
	assert.Equal(t, 1, m.Errs)
}

func TestCloseDrains(t *testing.T) {
	conn := &drainingConn{closed: make(chan struct{})}
	p := NewPublisher(conn, "ticktrack", slog.Default(), nil)
	p.closed = conn.closed

	require.NoError(t, p.PublishTrip("created", model.MonitoredTrip{TripID: "t1", LineID: "S1"}))
	p.Close()

	assert.Equal(t, 1, conn.Drained)
	assert.Equal(t, 0, conn.Closed)
	assert.Equal(t, 1, len(conn.Messages))
	select {
	case <-conn.closed:
	default:
		t.Fatal("close returned before drain completed")
	}
}

func TestCloseWithoutDrainer(t *testing.T) {
	p := NewPublisher(&fakeConn{}, "ticktrack", slog.Default(), nil)
	p.Close()
}
