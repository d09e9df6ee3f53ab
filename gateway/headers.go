package gateway

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
)

// Headers is a gateway header map. Values are kept as raw JSON so they can be
// forwarded unchanged; upstream proxies send either strings or string arrays.
type Headers map[string]json.RawMessage

// NewHeaders builds Headers from plain string values.
func NewHeaders(values map[string]string) Headers {
	h := make(Headers, len(values))
	for k, v := range values {
		h.Set(k, v)
	}
	return h
}

// Set stores a string value under name.
func (h Headers) Set(name, value string) {
	raw, _ := codec.Marshal(value)
	h[name] = raw
}

// Get returns the first value of the header, matching name case-insensitively.
// An exact-case key wins; otherwise case-folded keys are tried in sorted order.
func (h Headers) Get(name string) string {
	if raw, ok := h[name]; ok {
		if v, ok := headerValue(raw); ok {
			return v
		}
	}
	for _, k := range slices.Sorted(maps.Keys(h)) {
		if strings.EqualFold(k, name) {
			if v, ok := headerValue(h[k]); ok {
				return v
			}
		}
	}
	return ""
}

func headerValue(raw json.RawMessage) (string, bool) {
	var s string
	if err := codec.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var list []string
	if err := codec.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0], true
	}
	return "", false
}

// Authorization returns the Authorization header value.
func (h Headers) Authorization() string {
	return h.Get("Authorization")
}
