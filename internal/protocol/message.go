// Package protocol defines the request/response envelope exchanged between
// client and server, and the newline-delimited JSON codec that frames it over
// a byte stream. Exactly one response is written per request, in request
// order, on the same connection.
package protocol

// Request is one client message: an action tag plus string fields.
type Request struct {
	Action string            `json:"action"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Response is one server message. Message carries the human-readable outcome;
// Fields carry action-specific payload on success.
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// NewRequest builds a request for the given action.
func NewRequest(action Action, fields map[string]string) *Request {
	return &Request{Action: string(action), Fields: fields}
}

// Field returns the named request field ("" when absent).
func (r *Request) Field(name string) string {
	return r.Fields[name]
}

// NewOK builds a success response.
func NewOK(message string) *Response {
	return &Response{Success: true, Message: message}
}

// NewFail builds a failure response.
func NewFail(message string) *Response {
	return &Response{Success: false, Message: message}
}

// Set stores a response field, allocating the map on first use.
// Returns the response for chaining.
func (r *Response) Set(name, value string) *Response {
	if r.Fields == nil {
		r.Fields = make(map[string]string)
	}
	r.Fields[name] = value
	return r
}
