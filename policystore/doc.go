// Package policystore holds the server-trusted identity records the claims
// enricher reads, and the resource sharing grants the request interceptor
// checks.
//
// The production backend is DynamoDB: an AuthPolicyTable keyed by email with
// a TenantIdIndex secondary index, and a sharing table keyed by
// PK=RESOURCE#<id>, SK=SHARED_TO#<tenant>. MemoryStore and MemorySharing back
// tests and local runs.
package policystore
