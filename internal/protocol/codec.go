package protocol

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMalformed marks a line that could not be decoded as a message. The
// stream stays aligned (the bad line is consumed), so the caller may answer
// with a failure and keep reading.
var ErrMalformed = errors.New("malformed message")

// maxLineSize bounds a single message line. Larger lines abort the
// connection instead of exhausting memory.
const maxLineSize = 1 << 20

// Codec frames one JSON message per '\n'-terminated line over a stream.
// It is not safe for concurrent use; every connection owns exactly one codec.
type Codec struct {
	scanner *bufio.Scanner
	enc     *json.Encoder
}

func NewCodec(rw io.ReadWriter) *Codec {
	scanner := bufio.NewScanner(rw)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	return &Codec{
		scanner: scanner,
		enc:     json.NewEncoder(rw),
	}
}

// readLine returns the next non-empty line, io.EOF at end of stream, or the
// underlying transport error.
func (c *Codec) readLine() ([]byte, error) {
	for c.scanner.Scan() {
		line := c.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		return line, nil
	}
	if err := c.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// ReadRequest reads one request from the stream.
func (c *Codec) ReadRequest() (*Request, error) {
	line, err := c.readLine()
	if err != nil {
		return nil, err
	}
	req := &Request{}
	if err := json.Unmarshal(line, req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return req, nil
}

// ReadResponse reads one response from the stream.
func (c *Codec) ReadResponse() (*Response, error) {
	line, err := c.readLine()
	if err != nil {
		return nil, err
	}
	resp := &Response{}
	if err := json.Unmarshal(line, resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return resp, nil
}

// WriteRequest writes one request followed by a newline.
func (c *Codec) WriteRequest(req *Request) error {
	return c.enc.Encode(req)
}

// WriteResponse writes one response followed by a newline.
func (c *Codec) WriteResponse(resp *Response) error {
	return c.enc.Encode(resp)
}
