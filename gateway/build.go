package gateway

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

func jsonHeaders() Headers {
	return NewHeaders(map[string]string{"Content-Type": "application/json"})
}

// PassRequest forwards the request downstream with its original headers and
// the given body.
func PassRequest(req *Message, body json.RawMessage) *Output {
	headers := req.Headers
	if headers == nil {
		headers = Headers{}
	}
	return &Output{
		InterceptorOutputVersion: OutputVersion,
		MCP: OutputMCP{
			TransformedGatewayRequest: &Message{Headers: headers, Body: body},
		},
	}
}

type rpcResult struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result"`
}

// DenyRequest short-circuits the request with an MCP tool error result that
// echoes id.
func DenyRequest(id json.RawMessage, reason string) *Output {
	if len(id) == 0 {
		id = nullID
	}
	body, _ := codec.Marshal(rpcResult{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  mcp.NewToolResultError(reason),
	})
	return &Output{
		InterceptorOutputVersion: OutputVersion,
		MCP: OutputMCP{
			TransformedGatewayResponse: &Message{
				StatusCode: 200,
				Headers:    jsonHeaders(),
				Body:       body,
			},
		},
	}
}

// PassResponse returns the tool server's response untouched.
func PassResponse(resp *Message) *Output {
	headers := resp.Headers
	if headers == nil {
		headers = Headers{}
	}
	body := resp.Body
	if len(body) == 0 {
		body = json.RawMessage("{}")
	}
	return &Output{
		InterceptorOutputVersion: OutputVersion,
		MCP: OutputMCP{
			TransformedGatewayResponse: &Message{Headers: headers, Body: body},
		},
	}
}

// ToolListResponse returns a canonical tool listing:
// {"jsonrpc", "result": {"tools": [...]}, "id"}.
func ToolListResponse(version string, id json.RawMessage, tools []json.RawMessage) *Output {
	if len(id) == 0 {
		id = nullID
	}
	if tools == nil {
		tools = []json.RawMessage{}
	}
	body, _ := codec.Marshal(rpcResult{
		JSONRPC: version,
		ID:      id,
		Result:  map[string]any{"tools": tools},
	})
	return &Output{
		InterceptorOutputVersion: OutputVersion,
		MCP: OutputMCP{
			TransformedGatewayResponse: &Message{
				StatusCode: 200,
				Headers:    jsonHeaders(),
				Body:       body,
			},
		},
	}
}
