package trias

import (
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
)

const (
	NamespaceTrias = "http://www.vdv.de/trias"
	NamespaceSiri  = "http://www.siri.org.uk/siri"

	Version = "1.1"

	DefaultNumberOfResults = 40

	// Layout of timestamps sent to the endpoint. Always UTC, always
	// with an explicit offset.
	TimestampLayout = "2006-01-02T15:04:05+00:00"
)

// Formats t the way TRIAS endpoints expect timestamps.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// A request payload carried in ServiceRequest/RequestPayload. The set
// of payloads is closed; StopEventRequest is the only one so far.
type Payload interface {
	// Name of the payload element, e.g. "StopEventRequest".
	Name() string

	build(parent *etree.Element)
}

// An outbound TRIAS document.
type Document struct {
	Payload Payload

	doc *etree.Document
}

// Builds a ServiceRequest document wrapping the given payload.
func NewServiceRequest(requestorRef string, payload Payload, now time.Time) *Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("Trias")
	root.CreateAttr("xmlns", NamespaceTrias)
	root.CreateAttr("xmlns:siri", NamespaceSiri)
	root.CreateAttr("version", Version)

	serviceRequest := root.CreateElement("ServiceRequest")
	serviceRequest.CreateElement("siri:RequestTimestamp").SetText(Timestamp(now))
	serviceRequest.CreateElement("siri:RequestorRef").SetText(requestorRef)

	payload.build(serviceRequest.CreateElement("RequestPayload"))

	return &Document{
		Payload: payload,
		doc:     doc,
	}
}

// Root element of the document.
func (d *Document) Root() *etree.Element {
	return d.doc.Root()
}

// Serializes the document. Namespace declarations that no element or
// attribute refers to are dropped.
func (d *Document) Bytes() ([]byte, error) {
	doc := d.doc.Copy()
	pruneNamespaces(doc.Root())

	buf, err := doc.WriteToBytes()
	if err != nil {
		return nil, errors.Wrap(err, "serializing document")
	}

	return buf, nil
}

// Removes xmlns:prefix declarations from el whose prefix isn't used
// anywhere in the subtree.
func pruneNamespaces(el *etree.Element) {
	if el == nil {
		return
	}

	used := map[string]bool{}
	collectPrefixes(el, used)

	for _, child := range el.ChildElements() {
		pruneNamespaces(child)
	}

	unused := []string{}
	for _, attr := range el.Attr {
		if attr.Space == "xmlns" && !used[attr.Key] {
			unused = append(unused, attr.FullKey())
		}
	}
	for _, key := range unused {
		el.RemoveAttr(key)
	}
}

func collectPrefixes(el *etree.Element, used map[string]bool) {
	if el.Space != "" {
		used[el.Space] = true
	}
	for _, attr := range el.Attr {
		if attr.Space != "" && attr.Space != "xmlns" {
			used[attr.Space] = true
		}
	}
	for _, child := range el.ChildElements() {
		collectPrefixes(child, used)
	}
}

// Departures (or arrivals) at a stop point.
type StopEventRequest struct {
	StopPointRef    string
	DepArrTime      string
	NumberOfResults int
}

func (r *StopEventRequest) Name() string {
	return "StopEventRequest"
}

func (r *StopEventRequest) build(parent *etree.Element) {
	numResults := r.NumberOfResults
	if numResults <= 0 {
		numResults = DefaultNumberOfResults
	}

	req := parent.CreateElement("StopEventRequest")
	req.CreateElement("Location").
		CreateElement("LocationRef").
		CreateElement("StopPointRef").
		SetText(r.StopPointRef)
	req.CreateElement("DepArrTime").SetText(r.DepArrTime)

	params := req.CreateElement("Params")
	params.CreateElement("NumberOfResults").SetText(strconv.Itoa(numResults))
	params.CreateElement("StopEventType").SetText("departure")
	params.CreateElement("IncludeRealtimeData").SetText("true")
	params.CreateElement("IncludePreviousCalls").SetText("true")
	params.CreateElement("IncludeOnwardCalls").SetText("true")
}

// Builds a request for the next departures at stopPointRef, starting
// from depArrTime. A non-positive numResults means
// DefaultNumberOfResults.
func NewStopEventRequest(
	requestorRef string,
	stopPointRef string,
	depArrTime string,
	numResults int,
	now time.Time,
) *Document {
	return NewServiceRequest(requestorRef, &StopEventRequest{
		StopPointRef:    stopPointRef,
		DepArrTime:      depArrTime,
		NumberOfResults: numResults,
	}, now)
}
