// Package interceptor implements the gateway's request and response
// authorization interceptors.
//
// The request interceptor gates every tools/call: it verifies the caller's
// token, enforces the tenant boundary, applies the role permission map and,
// when configured, resource sharing and the external policy engine. The
// response interceptor filters tool listings down to what the caller's role
// may invoke.
//
// Both interceptors fail closed. Any error or panic while deciding produces
// a deny on the request side and an empty tool list on the response side.
//
// # Deny kinds
//
// Every deny carries a DenyKind for logs and metrics. The message returned to
// the caller never includes internal causes.
package interceptor
