package interceptor

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/jonwraymond/gatewayauthz/auth"
	"github.com/jonwraymond/gatewayauthz/gateway"
)

// request builds a request-side envelope. body is raw JSON.
func request(t *testing.T, headers map[string]string, body string) *gateway.Envelope {
	t.Helper()
	return decode(t, map[string]any{"mcp": map[string]any{
		"gatewayRequest": map[string]any{"headers": headers, "body": json.RawMessage(body)},
	}})
}

// response builds a response-side envelope carrying the original request
// headers.
func response(t *testing.T, reqHeaders map[string]string, body string) *gateway.Envelope {
	t.Helper()
	return decode(t, map[string]any{"mcp": map[string]any{
		"gatewayRequest":  map[string]any{"headers": reqHeaders, "body": json.RawMessage(`{}`)},
		"gatewayResponse": map[string]any{"statusCode": 200, "headers": map[string]string{"X-Upstream": "1"}, "body": json.RawMessage(body)},
	}})
}

func decode(t *testing.T, doc any) *gateway.Envelope {
	t.Helper()
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	env, err := gateway.DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope() error = %v", err)
	}
	return env
}

func callBody(id int, tool string, args map[string]any) string {
	data, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params":  map[string]any{"name": tool, "arguments": args},
	})
	return string(data)
}

type denyBody struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  struct {
		IsError bool `json:"isError"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"result"`
}

func parseDeny(t *testing.T, out *gateway.Output) denyBody {
	t.Helper()
	if out == nil || out.MCP.TransformedGatewayResponse == nil {
		t.Fatalf("expected deny response, got %+v", out)
	}
	if out.MCP.TransformedGatewayRequest != nil {
		t.Fatal("deny must not forward the request")
	}
	if out.InterceptorOutputVersion != gateway.OutputVersion {
		t.Errorf("version = %q", out.InterceptorOutputVersion)
	}
	var d denyBody
	if err := json.Unmarshal(out.MCP.TransformedGatewayResponse.Body, &d); err != nil {
		t.Fatalf("deny body: %v", err)
	}
	if !d.Result.IsError || len(d.Result.Content) != 1 {
		t.Fatalf("deny result = %+v", d.Result)
	}
	return d
}

type toolList struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  struct {
		Tools []json.RawMessage `json:"tools"`
	} `json:"result"`
}

func parseTools(t *testing.T, out *gateway.Output) (toolList, []string) {
	t.Helper()
	resp := out.MCP.TransformedGatewayResponse
	if resp == nil {
		t.Fatalf("expected transformed response, got %+v", out)
	}
	var l toolList
	if err := json.Unmarshal(resp.Body, &l); err != nil {
		t.Fatalf("tool list body %s: %v", resp.Body, err)
	}
	if l.Result.Tools == nil {
		t.Fatalf("result.tools missing in %s", resp.Body)
	}
	names := make([]string, 0, len(l.Result.Tools))
	for _, raw := range l.Result.Tools {
		names = append(names, gateway.ToolName(raw))
	}
	return l, names
}

// countingVerifier records calls to the wrapped verifier.
type countingVerifier struct {
	next  TokenVerifier
	calls atomic.Int32
}

func (c *countingVerifier) Verify(ctx context.Context, h string) (*auth.AuthContext, error) {
	c.calls.Add(1)
	return c.next.Verify(ctx, h)
}

type panicVerifier struct{}

func (panicVerifier) Verify(context.Context, string) (*auth.AuthContext, error) {
	panic("verifier exploded")
}

type fixedVerifier struct{ ac *auth.AuthContext }

func (f fixedVerifier) Verify(context.Context, string) (*auth.AuthContext, error) {
	return f.ac, nil
}

type errTenants struct{}

func (errTenants) IsTenantActive(context.Context, string) (bool, error) {
	return false, errors.New("tenant table unavailable")
}
