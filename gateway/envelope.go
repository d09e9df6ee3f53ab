package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// OutputVersion is the interceptor output schema version.
const OutputVersion = "1.0"

// Errors returned while decoding envelopes.
var (
	ErrInvalidEnvelope = errors.New("gateway: invalid envelope")
	ErrInvalidBody     = errors.New("gateway: invalid JSON in body")
)

var codec = sonic.ConfigStd

// Message is one side of a gateway exchange.
type Message struct {
	StatusCode int             `json:"statusCode,omitempty"`
	Headers    Headers         `json:"headers"`
	Body       json.RawMessage `json:"body,omitempty"`
}

// Envelope is the interceptor input.
type Envelope struct {
	MCP struct {
		GatewayRequest  *Message `json:"gatewayRequest,omitempty"`
		GatewayResponse *Message `json:"gatewayResponse,omitempty"`
	} `json:"mcp"`
}

// Request returns the gateway request, never nil.
func (e *Envelope) Request() *Message {
	if e.MCP.GatewayRequest == nil {
		e.MCP.GatewayRequest = &Message{}
	}
	return e.MCP.GatewayRequest
}

// Response returns the gateway response, never nil.
func (e *Envelope) Response() *Message {
	if e.MCP.GatewayResponse == nil {
		e.MCP.GatewayResponse = &Message{}
	}
	return e.MCP.GatewayResponse
}

// Output is the interceptor result.
type Output struct {
	InterceptorOutputVersion string    `json:"interceptorOutputVersion"`
	MCP                      OutputMCP `json:"mcp"`
}

// OutputMCP holds exactly one of the transformed request or response.
type OutputMCP struct {
	TransformedGatewayRequest  *Message `json:"transformedGatewayRequest,omitempty"`
	TransformedGatewayResponse *Message `json:"transformedGatewayResponse,omitempty"`
}

// IsPassThrough reports whether the output forwards the request downstream.
func (o *Output) IsPassThrough() bool {
	return o.MCP.TransformedGatewayRequest != nil
}

// DecodeEnvelope parses an interceptor input document.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := codec.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return &env, nil
}

// Encode serializes an output document.
func Encode(out *Output) ([]byte, error) {
	return codec.Marshal(out)
}

// JSONBody returns the message body as a JSON document. A body delivered as a
// JSON-encoded string is unwrapped; a missing body is the empty object.
func (m *Message) JSONBody() (json.RawMessage, error) {
	body := bytes.TrimSpace(m.Body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return json.RawMessage("{}"), nil
	}
	if body[0] == '"' {
		var inner string
		if err := codec.Unmarshal(body, &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		body = bytes.TrimSpace([]byte(inner))
	}
	if !codec.Valid(body) {
		return nil, ErrInvalidBody
	}
	return json.RawMessage(body), nil
}
