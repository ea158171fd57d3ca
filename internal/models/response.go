package models

import (
	"encoding/json"
	"net/http"
	"strings"
)

// TrackerResponse normalizes a raw tracker reply. Decoding happens once at
// construction: strict JSON first, an XML tree when the body carries an XML
// declaration, otherwise both stay nil and the status code is the only
// signal. Construction never fails on a malformed body.
type TrackerResponse struct {
	Body       string
	Header     http.Header
	StatusCode int

	// Exactly one of JSON/XML is set, or neither when the body is
	// undecodable. JSON objects are *OrderedMap, arrays []interface{}.
	JSON interface{}
	XML  *XMLNode
}

// NewTrackerResponse wraps a raw body, headers and status code. Transport
// failures are represented the same way with a synthesized status 500.
func NewTrackerResponse(body string, header http.Header, statusCode int) *TrackerResponse {
	if header == nil {
		header = http.Header{}
	}
	resp := &TrackerResponse{
		Body:       body,
		Header:     header,
		StatusCode: statusCode,
	}

	if decoded, err := DecodeOrdered(body); err == nil {
		resp.JSON = decoded
		return resp
	}

	if strings.HasPrefix(body, "<?xml") {
		if node, err := ParseXML(body); err == nil {
			resp.XML = node
		}
	}

	return resp
}

// Usable reports whether the body decoded as JSON. Callers must treat a
// non-usable body as "status code carries the signal".
func (r *TrackerResponse) Usable() bool {
	return r.JSON != nil
}

// Object returns the decoded body as an ordered object, or nil.
func (r *TrackerResponse) Object() *OrderedMap {
	obj, _ := r.JSON.(*OrderedMap)
	return obj
}

// Array returns the decoded body as an array, or nil.
func (r *TrackerResponse) Array() []interface{} {
	arr, _ := r.JSON.([]interface{})
	return arr
}

// Strings flattens a decoded JSON array into its string elements. The tracker
// reports ticket validation failures as a bare array of messages.
func (r *TrackerResponse) Strings() []string {
	arr := r.Array()
	if arr == nil {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		out = append(out, StringValue(v))
	}
	return out
}

// DecodeInto unmarshals the body into a typed value. Order does not matter
// for typed records, so this goes through encoding/json directly.
func (r *TrackerResponse) DecodeInto(v interface{}) error {
	return json.Unmarshal([]byte(r.Body), v)
}
