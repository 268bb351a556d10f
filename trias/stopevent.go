package trias

import (
	"time"

	"github.com/beevik/etree"
)

// Service reference of a stop event.
type Service struct {
	OperatingDayRef         string
	JourneyRef              string
	LineRef                 string
	PublishedLineName       string
	OriginStopPointRef      string
	OriginText              string
	DestinationStopPointRef string
	DestinationText         string
	Cancelled               bool
}

// A single stop along the trip, relative to the monitored station.
type Call struct {
	StopPointRef        string
	TimetabledDeparture string
	EstimatedDeparture  string
	TimetabledArrival   string
	EstimatedArrival    string
	NotServicedStop     bool
	UnplannedStop       bool
}

// Departure time of the call, preferring the estimate.
func (c *Call) Departure() string {
	if c.EstimatedDeparture != "" {
		return c.EstimatedDeparture
	}
	return c.TimetabledDeparture
}

// A StopEventResult, as far as it's of interest here. Anything
// missing in the document is left at its zero value.
type StopEventResult struct {
	ResultID      string
	Service       Service
	PreviousCalls []Call
	ThisCall      *Call
	OnwardCalls   []Call
}

// Reports whether the call at the monitored station carries an
// estimated departure time.
func (r *StopEventResult) HasRealtime() bool {
	return r.ThisCall != nil && r.ThisCall.EstimatedDeparture != ""
}

// Departure at the monitored station. Zero time if absent or
// unparseable.
func (r *StopEventResult) DepartureTime() time.Time {
	if r.ThisCall == nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, r.ThisCall.Departure())
	if err != nil {
		return time.Time{}
	}
	return t
}

func DecodeStopEventResult(el *etree.Element) StopEventResult {
	result := StopEventResult{
		ResultID: Value(el, "ResultId", ""),
		Service: Service{
			OperatingDayRef:         Value(el, "StopEvent.Service.OperatingDayRef", ""),
			JourneyRef:              Value(el, "StopEvent.Service.JourneyRef", ""),
			LineRef:                 Value(el, "StopEvent.Service.LineRef", ""),
			PublishedLineName:       Value(el, "StopEvent.Service.PublishedLineName.Text", ""),
			OriginStopPointRef:      Value(el, "StopEvent.Service.OriginStopPointRef", ""),
			OriginText:              Value(el, "StopEvent.Service.OriginText.Text", ""),
			DestinationStopPointRef: Value(el, "StopEvent.Service.DestinationStopPointRef", ""),
			DestinationText:         Value(el, "StopEvent.Service.DestinationText.Text", ""),
			Cancelled:               Truthy(el, "StopEvent.Service.Cancelled"),
		},
		PreviousCalls: []Call{},
		OnwardCalls:   []Call{},
	}

	for _, call := range Elements(el, "StopEvent.PreviousCall") {
		result.PreviousCalls = append(result.PreviousCalls, decodeCall(call))
	}

	if calls := Elements(el, "StopEvent.ThisCall"); len(calls) > 0 {
		c := decodeCall(calls[0])
		result.ThisCall = &c
	}

	for _, call := range Elements(el, "StopEvent.OnwardCall") {
		result.OnwardCalls = append(result.OnwardCalls, decodeCall(call))
	}

	return result
}

func decodeCall(el *etree.Element) Call {
	return Call{
		StopPointRef:        Value(el, "CallAtStop.StopPointRef", ""),
		TimetabledDeparture: Value(el, "CallAtStop.ServiceDeparture.TimetabledTime", ""),
		EstimatedDeparture:  Value(el, "CallAtStop.ServiceDeparture.EstimatedTime", ""),
		TimetabledArrival:   Value(el, "CallAtStop.ServiceArrival.TimetabledTime", ""),
		EstimatedArrival:    Value(el, "CallAtStop.ServiceArrival.EstimatedTime", ""),
		NotServicedStop:     Truthy(el, "CallAtStop.NotServicedStop"),
		UnplannedStop:       Truthy(el, "CallAtStop.UnplannedStop"),
	}
}
