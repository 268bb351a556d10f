package trias

import (
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopEventRequestRoundTrip(t *testing.T) {
	now := time.Date(2024, 1, 1, 11, 0, 0, 500, time.FixedZone("CET", 3600))

	req := NewStopEventRequest("secret-key", "de:08212:1", "2024-01-01T10:00:00+00:00", 0, now)
	assert.Equal(t, "StopEventRequest", req.Payload.Name())

	buf, err := req.Bytes()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(buf), `<?xml version="1.0" encoding="UTF-8"?>`))

	resp := etree.NewDocument()
	require.NoError(t, resp.ReadFromBytes(buf))
	root := resp.Root()

	assert.Equal(t, "Trias", root.Tag)
	assert.Equal(t, NamespaceTrias, root.NamespaceURI())
	assert.Equal(t, "1.1", Attribute(root, "version", ""))

	assert.Equal(t, "2024-01-01T10:00:00+00:00", Value(root, "ServiceRequest.{http://www.siri.org.uk/siri}RequestTimestamp", ""))
	assert.Equal(t, "secret-key", Value(root, "ServiceRequest.siri:RequestorRef", ""))

	ser := "ServiceRequest.RequestPayload.StopEventRequest"
	assert.Equal(t, "de:08212:1", Value(root, ser+".Location.LocationRef.StopPointRef", ""))
	assert.Equal(t, "2024-01-01T10:00:00+00:00", Value(root, ser+".DepArrTime", ""))
	assert.Equal(t, "40", Value(root, ser+".Params.NumberOfResults", ""))
	assert.Equal(t, "departure", Value(root, ser+".Params.StopEventType", ""))
	assert.True(t, Truthy(root, ser+".Params.IncludeRealtimeData"))
	assert.True(t, Truthy(root, ser+".Params.IncludePreviousCalls"))
	assert.True(t, Truthy(root, ser+".Params.IncludeOnwardCalls"))
}

func TestStopEventRequestNumberOfResults(t *testing.T) {
	req := NewStopEventRequest("k", "s", "t", 12, time.Now())
	buf, err := req.Bytes()
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(buf))
	assert.Equal(t, "12", Value(doc.Root(), "ServiceRequest.RequestPayload.StopEventRequest.Params.NumberOfResults", ""))
}

func TestBytesKeepsUsedNamespaces(t *testing.T) {
	buf, err := NewStopEventRequest("k", "s", "t", 0, time.Now()).Bytes()
	require.NoError(t, err)

	out := string(buf)
	assert.Contains(t, out, `xmlns="http://www.vdv.de/trias"`)
	assert.Contains(t, out, `xmlns:siri="http://www.siri.org.uk/siri"`)
	assert.NotContains(t, out, "py:pytype")
	assert.NotContains(t, out, "xsi:")
}

func TestPruneNamespaces(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(
		`<Trias xmlns="http://www.vdv.de/trias" xmlns:siri="http://www.siri.org.uk/siri" xmlns:py="http://codespeak.net/lxml/objectify/pytype" version="1.1"><ServiceRequest/></Trias>`,
	))

	pruneNamespaces(doc.Root())

	out, err := doc.WriteToString()
	require.NoError(t, err)
	assert.Equal(t, `<Trias xmlns="http://www.vdv.de/trias" version="1.1"><ServiceRequest/></Trias>`, out)
}

func TestBytesDoesNotMutateDocument(t *testing.T) {
	req := NewStopEventRequest("k", "s", "t", 0, time.Now())

	first, err := req.Bytes()
	require.NoError(t, err)
	second, err := req.Bytes()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "Trias", req.Root().Tag)
}
