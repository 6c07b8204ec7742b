// Package internal documents the NKO directory server internals.
//
// The internal tree is organized by responsibility:
// - api: router, HTTP handlers, middleware and problem+json errors
// - domain: users, sessions, NKO listings and events, plus the shared error taxonomy
// - storage: repository interfaces with PostgreSQL and in-memory implementations
// - importer: YAML/JSON loaders for bulk listing import and event seeding
// - audit, config, metrics, sanitize, telemetry, validation: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
