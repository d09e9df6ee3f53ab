// Package enrich computes the claims added to a token before the identity
// provider signs it.
//
// Claims come only from the server-side policy store. Client-supplied hints
// are validated against the stored record and dropped when they fail. A
// missing record or a store failure yields minimal-privilege guest claims, so
// enrichment narrows privilege but never blocks issuance.
package enrich
