package testutil

// Helpers and configuration for tests.

import (
	"os"
	"strconv"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/require"

	"github.com/ticktrack/ticktrack/storage"
	"github.com/ticktrack/ticktrack/trias"
)

// Backends available to tests. Postgres is only included when
// TICKTRACK_TEST_POSTGRES holds a connection string.
func Backends() []string {
	backends := []string{"memory", "sqlite"}
	if os.Getenv("TICKTRACK_TEST_POSTGRES") != "" {
		backends = append(backends, "postgres")
	}
	return backends
}

func BuildStorage(t testing.TB, backend string) storage.Storage {
	var s storage.Storage
	var err error
	if backend == "memory" {
		s = storage.NewMemoryStorage()
	} else if backend == "sqlite" {
		s, err = storage.NewSQLiteStorage()
		require.NoError(t, err)
	} else if backend == "postgres" {
		s, err = storage.NewPSQLStorage(os.Getenv("TICKTRACK_TEST_POSTGRES"), true)
		require.NoError(t, err)
	}
	require.NotEqual(t, nil, s, "unknown backend %q", backend)

	t.Cleanup(func() { s.Close() })

	return s
}

// A call in a fixture stop event. Times are written as given.
type Call struct {
	StopPointRef        string
	TimetabledDeparture string
	EstimatedDeparture  string
	TimetabledArrival   string
	EstimatedArrival    string
	NotServiced         bool
	Unplanned           bool
}

// A fixture stop event. Empty fields are left out of the document.
type StopEvent struct {
	OperatingDay    string
	TripID          string
	LineID          string
	LineName        string
	Origin          string
	OriginName      string
	Destination     string
	DestinationName string
	Cancelled       bool

	Previous []Call
	This     *Call
	Onward   []Call
}

// Builds a TRIAS StopEventResponse document holding the given events.
func BuildStopEventResponse(t testing.TB, events ...StopEvent) []byte {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("Trias")
	root.CreateAttr("xmlns", trias.NamespaceTrias)
	root.CreateAttr("xmlns:siri", trias.NamespaceSiri)
	root.CreateAttr("version", trias.Version)

	delivery := root.CreateElement("ServiceDelivery")
	delivery.CreateElement("siri:ResponseTimestamp").SetText("2024-01-01T10:00:00Z")
	response := delivery.CreateElement("DeliveryPayload").CreateElement("StopEventResponse")

	for i, event := range events {
		result := response.CreateElement("StopEventResult")
		result.CreateElement("ResultId").SetText("ID-" + strconv.Itoa(i+1))
		stopEvent := result.CreateElement("StopEvent")

		for _, call := range event.Previous {
			buildCall(stopEvent.CreateElement("PreviousCall"), call)
		}
		if event.This != nil {
			buildCall(stopEvent.CreateElement("ThisCall"), *event.This)
		}
		for _, call := range event.Onward {
			buildCall(stopEvent.CreateElement("OnwardCall"), call)
		}

		service := stopEvent.CreateElement("Service")
		textElement(service, "OperatingDayRef", event.OperatingDay)
		textElement(service, "JourneyRef", event.TripID)
		textElement(service, "LineRef", event.LineID)
		if event.LineName != "" {
			textElement(service.CreateElement("PublishedLineName"), "Text", event.LineName)
		}
		textElement(service, "OriginStopPointRef", event.Origin)
		if event.OriginName != "" {
			textElement(service.CreateElement("OriginText"), "Text", event.OriginName)
		}
		textElement(service, "DestinationStopPointRef", event.Destination)
		if event.DestinationName != "" {
			textElement(service.CreateElement("DestinationText"), "Text", event.DestinationName)
		}
		if event.Cancelled {
			textElement(service, "Cancelled", "true")
		}
	}

	buf, err := doc.WriteToBytes()
	require.NoError(t, err)

	return buf
}

func buildCall(parent *etree.Element, call Call) {
	cas := parent.CreateElement("CallAtStop")
	textElement(cas, "StopPointRef", call.StopPointRef)

	if call.TimetabledArrival != "" || call.EstimatedArrival != "" {
		arr := cas.CreateElement("ServiceArrival")
		textElement(arr, "TimetabledTime", call.TimetabledArrival)
		textElement(arr, "EstimatedTime", call.EstimatedArrival)
	}

	if call.TimetabledDeparture != "" || call.EstimatedDeparture != "" {
		dep := cas.CreateElement("ServiceDeparture")
		textElement(dep, "TimetabledTime", call.TimetabledDeparture)
		textElement(dep, "EstimatedTime", call.EstimatedDeparture)
	}

	if call.NotServiced {
		textElement(cas, "NotServicedStop", "true")
	}
	if call.Unplanned {
		textElement(cas, "UnplannedStop", "true")
	}
}

func textElement(parent *etree.Element, tag string, text string) {
	if text == "" {
		return
	}
	parent.CreateElement(tag).SetText(text)
}

// Decodes the results of a fixture response.
func ParseStopEvents(t testing.TB, events ...StopEvent) []trias.StopEventResult {
	resp, err := trias.ParseResponse(BuildStopEventResponse(t, events...))
	require.NoError(t, err)
	return resp.StopEventResults()
}
