// Package gateway implements the AgentCore Gateway interceptor wire format.
//
// Interceptors receive an Envelope holding the original gateway request (and,
// on the response side, the tool server's response) and return an Output
// describing either a transformed request to forward or a response to return
// to the caller. Bodies are carried as raw JSON so that pass-through
// forwards them byte for byte.
package gateway
