// Package main provides the entry point for the OPA permission management
// service. It runs a Fiber based REST API that lets administrators register
// applications, map Active Directory groups to per-application roles, and
// evaluate a user's effective role through an Open Policy Agent server.
// Role mappings are persisted with gorm and pushed to OPA's data API after
// every mutation so the policy engine always evaluates against the current
// database state.
package main
