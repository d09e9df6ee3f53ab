package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
)

// JSON-RPC methods the interceptors act on.
const (
	MethodInitialize  = string(mcp.MethodInitialize)
	MethodInitialized = "notifications/initialized"
	MethodPing        = string(mcp.MethodPing)
	MethodToolsList   = string(mcp.MethodToolsList)
	MethodToolsCall   = string(mcp.MethodToolsCall)
)

// JSONRPCVersion is the protocol version emitted in generated bodies.
const JSONRPCVersion = mcp.JSONRPC_VERSION

var lifecycleMethods = []string{MethodInitialize, MethodInitialized, MethodPing, MethodToolsList}

// IsLifecycle reports whether method is a session-negotiation or discovery
// call that must reach the gateway before any credential exists.
func IsLifecycle(method string) bool {
	return slices.Contains(lifecycleMethods, method)
}

var nullID = json.RawMessage("null")

// RPCRequest is a JSON-RPC request body.
type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// ParseRPCRequest decodes a JSON-RPC request body.
func ParseRPCRequest(body json.RawMessage) (*RPCRequest, error) {
	var req RPCRequest
	if err := codec.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return &req, nil
}

// RequestID returns the request id, or JSON null when absent.
func (r *RPCRequest) RequestID() json.RawMessage {
	if r == nil || len(r.ID) == 0 {
		return nullID
	}
	return r.ID
}

// CallParams are the params of a tools/call request.
type CallParams struct {
	Name      string                     `json:"name"`
	Arguments map[string]json.RawMessage `json:"arguments,omitempty"`
}

// CallParams decodes the params of a tools/call request.
func (r *RPCRequest) CallParams() (CallParams, error) {
	var p CallParams
	params := bytes.TrimSpace(r.Params)
	if len(params) == 0 || bytes.Equal(params, nullID) {
		return p, nil
	}
	if err := codec.Unmarshal(params, &p); err != nil {
		return p, fmt.Errorf("%w: params: %v", ErrInvalidBody, err)
	}
	return p, nil
}

// StringArgument reads a string argument. present is false when the argument
// is absent or JSON null; ok is false when it is present but not a string.
func (p CallParams) StringArgument(name string) (value string, present, ok bool) {
	raw, exists := p.Arguments[name]
	if !exists {
		return "", false, true
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, nullID) {
		return "", false, true
	}
	if err := codec.Unmarshal(raw, &value); err != nil {
		return "", true, false
	}
	return value, true, true
}

// RPCResponse is a JSON-RPC response body.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// ParseRPCResponse decodes a JSON-RPC response body.
func ParseRPCResponse(body json.RawMessage) (*RPCResponse, error) {
	var resp RPCResponse
	if err := codec.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return &resp, nil
}

// RequestID returns the response id, or JSON null when absent.
func (r *RPCResponse) RequestID() json.RawMessage {
	if r == nil || len(r.ID) == 0 {
		return nullID
	}
	return r.ID
}

// Version returns the jsonrpc field, defaulting to JSONRPCVersion.
func (r *RPCResponse) Version() string {
	if r == nil || r.JSONRPC == "" {
		return JSONRPCVersion
	}
	return r.JSONRPC
}

// Tools returns the tool descriptors carried by a listing or search result,
// from result.tools or else result.structuredContent.tools. It returns nil
// for results that carry no tools, and ErrInvalidBody when either field is
// present but has the wrong shape.
func (r *RPCResponse) Tools() ([]json.RawMessage, error) {
	if r == nil || len(r.Result) == 0 {
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := codec.Unmarshal(r.Result, &fields); err != nil {
		// A scalar or array result is not a tool listing.
		return nil, nil
	}
	tools, err := rawArray(fields["tools"], "result.tools")
	if err != nil {
		return nil, err
	}
	var structured []json.RawMessage
	if sc, ok := fields["structuredContent"]; ok {
		var inner map[string]json.RawMessage
		if err := codec.Unmarshal(sc, &inner); err != nil {
			return nil, fmt.Errorf("%w: result.structuredContent: %v", ErrInvalidBody, err)
		}
		if structured, err = rawArray(inner["tools"], "result.structuredContent.tools"); err != nil {
			return nil, err
		}
	}
	if len(tools) > 0 {
		return tools, nil
	}
	return structured, nil
}

func rawArray(raw json.RawMessage, field string) ([]json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var list []json.RawMessage
	if err := codec.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidBody, field, err)
	}
	return list, nil
}

// ToolName reads the name field of a raw tool descriptor.
func ToolName(descriptor json.RawMessage) string {
	var t struct {
		Name string `json:"name"`
	}
	if err := codec.Unmarshal(descriptor, &t); err != nil {
		return ""
	}
	return t.Name
}
