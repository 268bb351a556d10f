package trias

import (
	"github.com/beevik/etree"
	"github.com/pkg/errors"
	"github.com/spkg/bom"
)

// Returned when a response can't be read as a TRIAS document.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "parsing trias response: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// An inbound TRIAS document.
type Response struct {
	doc *etree.Document
}

// Parses raw response bytes. Fails with a *ParseError if data isn't
// well-formed XML rooted at a Trias element.
func ParseResponse(data []byte) (*Response, error) {
	doc := etree.NewDocument()
	err := doc.ReadFromBytes(bom.Clean(data))
	if err != nil {
		return nil, &ParseError{Err: errors.Wrap(err, "reading document")}
	}

	root := doc.Root()
	if root == nil {
		return nil, &ParseError{Err: errors.New("document is empty")}
	}
	if root.Tag != "Trias" {
		return nil, &ParseError{Err: errors.Errorf("unexpected root element %q", root.Tag)}
	}

	return &Response{doc: doc}, nil
}

// The Trias root element.
func (r *Response) Root() *etree.Element {
	return r.doc.Root()
}

// Error messages reported by the endpoint in
// ServiceDelivery/ErrorMessage, if any.
func (r *Response) ErrorMessages() []string {
	messages := []string{}
	for _, el := range Elements(r.Root(), "ServiceDelivery.DeliveryPayload.StopEventResponse.ErrorMessage") {
		messages = append(messages, Value(el, "Text.Text", Value(el, "Code", "")))
	}
	return messages
}

// All stop event results in the response, in document order.
func (r *Response) StopEventResults() []StopEventResult {
	results := []StopEventResult{}
	for _, el := range Elements(r.Root(), "ServiceDelivery.DeliveryPayload.StopEventResponse.StopEventResult") {
		results = append(results, DecodeStopEventResult(el))
	}
	return results
}
