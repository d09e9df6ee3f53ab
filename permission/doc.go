// Package permission defines the role-to-tool permission model shared by the
// request and response interceptors.
//
// A Map is built once at startup and is read-only afterwards. Roles have no
// inheritance and the map carries no per-tenant overrides: a role either
// grants every tool (the "*" wildcard) or a finite set of tool names. Roles
// missing from the map grant nothing.
package permission
